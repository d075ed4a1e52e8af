package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/gitris-classic/internal/models"
)

// memoryScoreRepository はプロセス内メモリに保存するScoreRepositoryです。
// DATABASE_URL が未設定のローカル実行やテストで使います。
type memoryScoreRepository struct {
	mu     sync.RWMutex
	nextID int64
	scores []models.HighScore
	now    func() time.Time
}

// NewMemoryScoreRepository はメモリ上のScoreRepositoryを作成します。
func NewMemoryScoreRepository() ScoreRepository {
	return &memoryScoreRepository{now: time.Now}
}

func (r *memoryScoreRepository) CreateScore(ctx context.Context, name string, score int) (*models.HighScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	hs := models.HighScore{
		ID:        r.nextID,
		Name:      name,
		Score:     score,
		CreatedAt: r.now().UTC(),
	}
	r.scores = append(r.scores, hs)
	return &hs, nil
}

func (r *memoryScoreRepository) GetTopScores(ctx context.Context, limit int) ([]models.HighScoreResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	sorted := append([]models.HighScore(nil), r.scores...)
	r.mu.RUnlock()

	// IDは登録順なので、同点時はIDの小さい方が先
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].ID < sorted[j].ID
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	results := make([]models.HighScoreResponse, 0, len(sorted))
	for i, hs := range sorted {
		results = append(results, models.HighScoreResponse{
			ID:        hs.ID,
			Name:      hs.Name,
			Score:     hs.Score,
			CreatedAt: hs.CreatedAt,
			Rank:      i + 1,
		})
	}
	return results, nil
}
