package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ytnotes/internal/domain"
)

// GetUserSettingsWithDefault returns stored options, falling back to the
// defaults for users who never changed anything or whose stored values are no
// longer supported.
func (d *Database) GetUserSettingsWithDefault(
	ctx context.Context,
	userID int64,
) (*domain.UserSettings, error) {
	query := `select language, summary_length, compare_summaries
	from user_settings
	where user_id = ?`

	var (
		language string
		length   string
		compare  bool
	)

	err := d.db.QueryRowContext(ctx, query, userID).Scan(&language, &length, &compare)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.UserSettings{
			UserID:  userID,
			Options: domain.DefaultOptions(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	options := domain.DefaultOptions()
	options.Compare = compare

	if domain.ValidLanguage(language) {
		options.Language = language
	} else {
		d.log.WarnContext(ctx, "Stored language is unsupported",
			"userID", userID,
			"language", language)
	}

	if parsed, ok := domain.ParseLength(length); ok {
		options.Length = parsed
	} else {
		d.log.WarnContext(ctx, "Stored summary length is unsupported",
			"userID", userID,
			"length", length)
	}

	return &domain.UserSettings{
		UserID:  userID,
		Options: options,
	}, nil
}

func (d *Database) UpsertUserSettings(ctx context.Context, userSettings *domain.UserSettings) error {
	if err := userSettings.Options.Validate(); err != nil {
		return err
	}

	query := `insert into user_settings (user_id, language, summary_length, compare_summaries)
	values (?, ?, ?, ?)
	on conflict (user_id) do update
	set language = excluded.language,
	summary_length = excluded.summary_length,
	compare_summaries = excluded.compare_summaries`

	_, err := d.db.ExecContext(
		ctx,
		query,
		userSettings.UserID,
		userSettings.Options.Language,
		string(userSettings.Options.Length),
		userSettings.Options.Compare,
	)

	return err
}
