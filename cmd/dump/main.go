// Dump tool: export bảng repos ra CSV hoặc restore từ CSV qua cùng một
// đường upsert với crawler, nên restore đè lên dữ liệu cũ an toàn.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/edisonbui/star-crawler/cfg"
	"github.com/edisonbui/star-crawler/internal/model"
	"github.com/edisonbui/star-crawler/pkg/db"
	"github.com/edisonbui/star-crawler/pkg/log"
)

var csvHeader = []string{"remote_id", "user", "name", "star_count", "language", "repo_created_at", "repo_updated_at"}

const pageSize = 500

func main() {
	exportPath := flag.String("export", "", "Export repos to the given CSV file")
	restorePath := flag.String("restore", "", "Restore repos from the given CSV file")
	flag.Parse()

	if (*exportPath == "") == (*restorePath == "") {
		fmt.Println("Please specify exactly one of -export=file.csv or -restore=file.csv")
		os.Exit(1)
	}

	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := log.NewCslLogger()
	mysql, _ := db.NewMysql(config)
	repoMd, _ := model.NewRepo(config, logger, mysql)

	ctx := context.Background()
	if *exportPath != "" {
		err = exportRepos(ctx, logger, repoMd, *exportPath)
	} else {
		if err := mysql.Migrate(repoMd); err != nil {
			logger.Error(ctx, "Migrate failed: %v", err)
			os.Exit(1)
		}
		err = restoreRepos(ctx, logger, repoMd, *restorePath, config.Crawler.BatchSize)
	}
	if err != nil {
		logger.Error(ctx, "Dump failed: %v", err)
		os.Exit(1)
	}
}

func exportRepos(ctx context.Context, logger log.Logger, repoMd *model.Repo, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	exported := 0
	for offset := 0; ; offset += pageSize {
		repos, err := repoMd.FindPage(offset, pageSize)
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			break
		}
		for _, r := range repos {
			record := []string{
				r.RemoteID,
				r.User,
				r.Name,
				strconv.Itoa(r.StarCount),
				r.Language,
				r.RepoCreatedAt.Format(time.RFC3339),
				r.RepoUpdatedAt.Format(time.RFC3339),
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		exported += len(repos)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	logger.Info(ctx, "Exported %d repositories to %s", exported, path)
	return nil
}

func restoreRepos(ctx context.Context, logger log.Logger, repoMd *model.Repo, path string, batchSize int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("empty csv file %s", path)
	}
	// Bỏ dòng header
	records = records[1:]

	restored := 0
	batch := make([]model.RepoMessage, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := repoMd.UpsertBatch(batch); err != nil {
			return err
		}
		restored += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, rec := range records {
		if len(rec) != len(csvHeader) {
			return fmt.Errorf("line %d: expected %d fields, got %d", i+2, len(csvHeader), len(rec))
		}
		stars, err := strconv.Atoi(rec[3])
		if err != nil {
			return fmt.Errorf("line %d: bad star_count %q", i+2, rec[3])
		}
		createdAt, err := time.Parse(time.RFC3339, rec[5])
		if err != nil {
			return fmt.Errorf("line %d: bad repo_created_at %q", i+2, rec[5])
		}
		updatedAt, err := time.Parse(time.RFC3339, rec[6])
		if err != nil {
			return fmt.Errorf("line %d: bad repo_updated_at %q", i+2, rec[6])
		}

		batch = append(batch, model.RepoMessage{
			RemoteID:      rec[0],
			User:          rec[1],
			Name:          rec[2],
			StarCount:     stars,
			Language:      rec[4],
			RepoCreatedAt: createdAt,
			RepoUpdatedAt: updatedAt,
		})
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info(ctx, "Restored %d repositories from %s", restored, path)
	return nil
}
