package repository

import (
	"context"
	"errors"
	"fmt"

	"TrackFM/model"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrNameTaken is returned when the unique name index rejects a write.
	ErrNameTaken = errors.New("track name already exists")
	// ErrTrackNotFound is returned by writes that matched no live row.
	ErrTrackNotFound = errors.New("track not found")
)

const mysqlDuplicateEntry = 1062

// TrackRepository 曲目数据访问接口
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id int64) (*model.Track, error)
	GetByName(ctx context.Context, name string) (*model.Track, error)
	NameExists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]*model.Track, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

// gormTrackRepository GORM 实现
type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository 创建 GORM 曲目仓库
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// Create 创建曲目. A unique violation on the name maps to ErrNameTaken.
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrNameTaken, track.Name)
		}
		return fmt.Errorf("failed to create track %q: %w", track.Name, err)
	}
	return nil
}

// GetByID 根据ID获取曲目, nil when absent or soft deleted.
func (r *gormTrackRepository) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).First(&track, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get track %d: %w", id, err)
	}
	return &track, nil
}

// GetByName 根据名称获取曲目
func (r *gormTrackRepository) GetByName(ctx context.Context, name string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&track).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get track by name %q: %w", name, err)
	}
	return &track, nil
}

// NameExists includes soft deleted rows, matching what the unique index enforces.
func (r *gormTrackRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.Track{}).
		Where("name = ?", name).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check track name %q: %w", name, err)
	}
	return count > 0, nil
}

// List 获取所有曲目
func (r *gormTrackRepository) List(ctx context.Context) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

// Rename 修改曲目名称
func (r *gormTrackRepository) Rename(ctx context.Context, id int64, name string) error {
	res := r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
		return fmt.Errorf("failed to rename track %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTrackNotFound
	}
	return nil
}

// Delete 软删除曲目
func (r *gormTrackRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Track{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete track %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTrackNotFound
	}
	return nil
}
