package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// reviewRow is the GORM-mapped shape of a Record. Warnings are stored as a
// JSON array in a text column.
type reviewRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Analysis  []byte `gorm:"type:mediumblob"`
	Warnings  string `gorm:"type:text"`
	LintScore int
	Status    string `gorm:"size:16;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (reviewRow) TableName() string { return "analysis_reviews" }

// Gorm is a MySQL-backed Store.
type Gorm struct {
	db *gorm.DB
}

// OpenGorm connects to MySQL and migrates the review table.
func OpenGorm(dsn string) (*Gorm, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cannot open review database: %w", err)
	}
	return NewGorm(db)
}

// NewGorm wraps an existing connection and migrates the review table.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&reviewRow{}); err != nil {
		return nil, fmt.Errorf("cannot migrate review table: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Create(ctx context.Context, rec *Record) error {
	prepare(rec, time.Now().UTC())
	row, err := toRow(rec)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Create(row).Error
}

func (g *Gorm) Get(ctx context.Context, id string) (*Record, error) {
	var row reviewRow
	err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRow(row)
}

func (g *Gorm) Approve(ctx context.Context, id string) (*Record, error) {
	return g.decide(ctx, id, StatusApproved)
}

func (g *Gorm) Reject(ctx context.Context, id string) (*Record, error) {
	return g.decide(ctx, id, StatusRejected)
}

// decide flips a pending record to its final status. The status guard is in
// the WHERE clause so concurrent decisions cannot both win.
func (g *Gorm) decide(ctx context.Context, id string, status Status) (*Record, error) {
	res := g.db.WithContext(ctx).Model(&reviewRow{}).
		Where("id = ? AND status = ?", id, string(StatusPending)).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := g.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotPending
	}
	return g.Get(ctx, id)
}

func (g *Gorm) List(ctx context.Context) ([]Record, error) {
	var rows []reviewRow
	if err := g.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func toRow(rec *Record) (*reviewRow, error) {
	warnings, err := json.Marshal(rec.Warnings)
	if err != nil {
		return nil, err
	}
	return &reviewRow{
		ID:        rec.ID,
		Analysis:  rec.Analysis,
		Warnings:  string(warnings),
		LintScore: rec.LintScore,
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func fromRow(row reviewRow) (*Record, error) {
	rec := &Record{
		ID:        row.ID,
		Analysis:  row.Analysis,
		LintScore: row.LintScore,
		Status:    Status(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Warnings != "" {
		if err := json.Unmarshal([]byte(row.Warnings), &rec.Warnings); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
