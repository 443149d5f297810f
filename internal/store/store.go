// Package store is the track library: imported audio files, their lyric
// timelines, per-track offsets, and user playlists, persisted in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a track or playlist id does not exist.
var ErrNotFound = errors.New("not found")

// Track is one imported song with its lyric file and sync offset.
type Track struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	Title         string `gorm:"index:idx_track_meta,priority:1" json:"title"`
	Artist        string `gorm:"index:idx_track_meta,priority:2" json:"artist"`
	DurationMs    int    `json:"duration_ms"`
	AudioPath     string `json:"audio_path"`
	SrtPath       string `json:"srt_path"`
	LyricOffsetMs int    `json:"lyric_offset_ms"`
	CreatedAt     time.Time
}

// Playlist is a named, ordered track collection.
type Playlist struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"index" json:"name"`
	CreatedAt time.Time
}

// PlaylistTrack is one membership row. Position is contiguous from 0
// within a playlist.
type PlaylistTrack struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PlaylistID string `gorm:"type:varchar(36);index:idx_pl_track,priority:1"`
	TrackID    string `gorm:"type:varchar(36);index:idx_pl_track,priority:2"`
	Position   int
}

// Store wraps the gorm connection to the library database.
type Store struct {
	DB *gorm.DB
	db *sql.DB
}

// Open creates or opens the library database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Track{}, &Playlist{}, &PlaylistTrack{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{DB: db, db: sqlDB}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AddTrack inserts a track and returns its generated id.
func (s *Store) AddTrack(title, artist, audioPath, srtPath string, durationMs, offsetMs int) (string, error) {
	track := Track{
		ID:            uuid.NewString(),
		Title:         title,
		Artist:        artist,
		DurationMs:    durationMs,
		AudioPath:     audioPath,
		SrtPath:       srtPath,
		LyricOffsetMs: offsetMs,
	}
	if err := s.DB.Create(&track).Error; err != nil {
		return "", fmt.Errorf("creating track: %w", err)
	}
	return track.ID, nil
}

// GetTrack fetches one track by id.
func (s *Store) GetTrack(id string) (*Track, error) {
	var track Track
	err := s.DB.Where("id = ?", id).First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying track: %w", err)
	}
	return &track, nil
}

// ListTracks returns every track, newest first.
func (s *Store) ListTracks() ([]Track, error) {
	var tracks []Track
	if err := s.DB.Order("created_at DESC").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	return tracks, nil
}

// SetTrackOffset persists the lyric sync offset for one track.
func (s *Store) SetTrackOffset(id string, offsetMs int) error {
	res := s.DB.Model(&Track{}).Where("id = ?", id).Update("lyric_offset_ms", offsetMs)
	if res.Error != nil {
		return fmt.Errorf("updating offset: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateDuration persists a track duration discovered after import.
func (s *Store) UpdateDuration(id string, durationMs int) error {
	res := s.DB.Model(&Track{}).Where("id = ?", id).Update("duration_ms", durationMs)
	if res.Error != nil {
		return fmt.Errorf("updating duration: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTrack removes a track and all its playlist memberships.
func (s *Store) DeleteTrack(id string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&Track{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("track %s: %w", id, ErrNotFound)
		}
		return tx.Where("track_id = ?", id).Delete(&PlaylistTrack{}).Error
	})
}

// Artists returns the distinct non-empty artist names, sorted.
func (s *Store) Artists() ([]string, error) {
	var names []string
	err := s.DB.Model(&Track{}).
		Where("artist <> ''").
		Distinct("artist").
		Order("artist").
		Pluck("artist", &names).Error
	if err != nil {
		return nil, fmt.Errorf("listing artists: %w", err)
	}
	return names, nil
}

// CreatePlaylist inserts an empty playlist and returns its id.
func (s *Store) CreatePlaylist(name string) (string, error) {
	pl := Playlist{ID: uuid.NewString(), Name: name}
	if err := s.DB.Create(&pl).Error; err != nil {
		return "", fmt.Errorf("creating playlist: %w", err)
	}
	return pl.ID, nil
}

// ListPlaylists returns every playlist, newest first.
func (s *Store) ListPlaylists() ([]Playlist, error) {
	var pls []Playlist
	if err := s.DB.Order("created_at DESC").Find(&pls).Error; err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	return pls, nil
}

// RenamePlaylist changes a playlist's display name.
func (s *Store) RenamePlaylist(id, name string) error {
	res := s.DB.Model(&Playlist{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return fmt.Errorf("renaming playlist: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePlaylist removes a playlist and its membership rows.
func (s *Store) DeletePlaylist(id string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&PlaylistTrack{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&Playlist{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// AddToPlaylist appends a track at the end of a playlist.
func (s *Store) AddToPlaylist(playlistID, trackID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var next sql.NullInt64
		err := tx.Model(&PlaylistTrack{}).
			Where("playlist_id = ?", playlistID).
			Select("MAX(position) + 1").
			Scan(&next).Error
		if err != nil {
			return fmt.Errorf("finding next position: %w", err)
		}
		pos := 0
		if next.Valid {
			pos = int(next.Int64)
		}
		return tx.Create(&PlaylistTrack{
			PlaylistID: playlistID,
			TrackID:    trackID,
			Position:   pos,
		}).Error
	})
}

// RemoveFromPlaylist drops a membership and compacts the remaining
// positions back to a contiguous run.
func (s *Store) RemoveFromPlaylist(playlistID, trackID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
			Delete(&PlaylistTrack{}).Error; err != nil {
			return err
		}
		return reorderPlaylist(tx, playlistID)
	})
}

// MoveInPlaylist moves the track at oldPos to newPos. Out-of-range
// positions are ignored.
func (s *Store) MoveInPlaylist(playlistID string, oldPos, newPos int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var rows []PlaylistTrack
		if err := tx.Where("playlist_id = ?", playlistID).
			Order("position").Find(&rows).Error; err != nil {
			return err
		}
		if oldPos < 0 || oldPos >= len(rows) || newPos < 0 || newPos >= len(rows) {
			return nil
		}
		moved := rows[oldPos]
		rows = append(rows[:oldPos], rows[oldPos+1:]...)
		rows = append(rows[:newPos], append([]PlaylistTrack{moved}, rows[newPos:]...)...)
		for i, row := range rows {
			if err := tx.Model(&PlaylistTrack{}).Where("id = ?", row.ID).
				Update("position", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PlaylistTracks returns the playlist's tracks in playback order.
func (s *Store) PlaylistTracks(playlistID string) ([]Track, error) {
	var tracks []Track
	err := s.DB.Model(&Track{}).
		Joins("JOIN playlist_tracks pt ON pt.track_id = tracks.id").
		Where("pt.playlist_id = ?", playlistID).
		Order("pt.position").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("listing playlist tracks: %w", err)
	}
	return tracks, nil
}

func reorderPlaylist(tx *gorm.DB, playlistID string) error {
	var rows []PlaylistTrack
	if err := tx.Where("playlist_id = ?", playlistID).
		Order("position").Find(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		if row.Position == i {
			continue
		}
		if err := tx.Model(&PlaylistTrack{}).Where("id = ?", row.ID).
			Update("position", i).Error; err != nil {
			return err
		}
	}
	return nil
}
