package model

import (
	"fmt"
	"time"

	"github.com/edisonbui/star-crawler/cfg"
	"github.com/edisonbui/star-crawler/pkg/db"
	"github.com/edisonbui/star-crawler/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	Model
	RemoteID      string    `json:"remote_id" gorm:"column:remote_id;type:varchar(64);uniqueIndex;not null"`
	User          string    `json:"user" gorm:"column:user;type:varchar(255);not null"`
	Name          string    `json:"name" gorm:"column:name;type:varchar(255);not null"`
	StarCount     int       `json:"star_count" gorm:"column:star_count;default:0"`
	Language      string    `json:"language" gorm:"column:language;type:varchar(64)"`
	RepoCreatedAt time.Time `json:"repo_created_at" gorm:"column:repo_created_at"`
	RepoUpdatedAt time.Time `json:"repo_updated_at" gorm:"column:repo_updated_at"`
	LastCrawledAt time.Time `json:"last_crawled_at" gorm:"column:last_crawled_at"`
}

func NewRepo(config *cfg.Config, logger log.Logger, db *db.Mysql) (*Repo, error) {
	repo := &Repo{
		Model: Model{
			Config: config,
			Logger: logger,
			Mysql:  db,
		},
	}
	return repo, nil
}

func (r *Repo) TableName() string {
	return "repos"
}

// UpsertBatch ghi một batch repository trong một transaction duy nhất,
// khóa theo remote_id: insert nếu chưa có, cập nhật các trường mutable
// nếu đã tồn tại. Chạy lại cùng một batch không tạo thêm dòng nào.
func (r *Repo) UpsertBatch(msgs []RepoMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	db, err := r.Mysql.Db()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	repos := make([]Repo, 0, len(msgs))
	now := time.Now()

	for _, msg := range msgs {
		repos = append(repos, Repo{
			RemoteID:      TruncateString(msg.RemoteID, 60),
			User:          TruncateString(msg.User, 250),
			Name:          TruncateString(msg.Name, 250),
			StarCount:     msg.StarCount,
			Language:      TruncateString(msg.Language, 60),
			RepoCreatedAt: msg.RepoCreatedAt,
			RepoUpdatedAt: msg.RepoUpdatedAt,
			LastCrawledAt: now,
		})
	}

	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "remote_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"star_count", "language", "repo_updated_at", "last_crawled_at", "updated_at",
			}),
		}).CreateInBatches(repos, 100)

		if result.Error != nil {
			return fmt.Errorf("failed to batch upsert repositories: %w", result.Error)
		}

		return nil
	})
}

// FindPage đọc một trang repository theo thứ tự id, dùng cho export
func (r *Repo) FindPage(offset, limit int) ([]Repo, error) {
	db, err := r.Mysql.Db()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	var repos []Repo
	if err := db.Order("id asc").Offset(offset).Limit(limit).Find(&repos).Error; err != nil {
		return nil, err
	}
	return repos, nil
}

// Count đếm số dòng trong bảng repos
func (r *Repo) Count() (int64, error) {
	db, err := r.Mysql.Db()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Model(&Repo{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
