package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, url, title, format_id, status, progress, speed, eta, filename, error, user_id, thumbnail, sub_id, view_count, description, duration, upload_date, last_played, is_in_library, is_in_downloads, enqueued_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            string
		url           string
		title         sql.NullString
		formatID      sql.NullString
		statusStr     string
		progress      sql.NullFloat64
		speed         sql.NullString
		eta           sql.NullString
		filename      sql.NullString
		errorMessage  sql.NullString
		userID        sql.NullString
		thumbnail     sql.NullString
		subID         sql.NullString
		viewCount     sql.NullInt64
		description   sql.NullString
		duration      sql.NullString
		uploadDate    sql.NullString
		lastPlayedRaw sql.NullString
		inLibrary     sql.NullInt64
		inDownloads   sql.NullInt64
		enqueuedRaw   sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&url,
		&title,
		&formatID,
		&statusStr,
		&progress,
		&speed,
		&eta,
		&filename,
		&errorMessage,
		&userID,
		&thumbnail,
		&subID,
		&viewCount,
		&description,
		&duration,
		&uploadDate,
		&lastPlayedRaw,
		&inLibrary,
		&inDownloads,
		&enqueuedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		URL:          url,
		Title:        title.String,
		FormatID:     formatID.String,
		Status:       Status(statusStr),
		Progress:     progress.Float64,
		Speed:        speed.String,
		ETA:          eta.String,
		Filename:     filename.String,
		ErrorMessage: errorMessage.String,
		UserID:       userID.String,
		Thumbnail:    thumbnail.String,
		SubID:        subID.String,
		Description:  description.String,
		Duration:     duration.String,
		UploadDate:   uploadDate.String,
		InLibrary:    inLibrary.Valid && inLibrary.Int64 != 0,
		InDownloads:  inDownloads.Valid && inDownloads.Int64 != 0,
	}
	if viewCount.Valid {
		v := viewCount.Int64
		job.ViewCount = &v
	}
	if lastPlayedRaw.Valid {
		if played, err := parseTimeString(lastPlayedRaw.String); err == nil {
			job.LastPlayed = &played
		}
	}
	if enqueued, err := parseTimeString(enqueuedRaw.String); err == nil {
		job.EnqueuedAt = enqueued
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
