// Package keychain stores the operator-supplied portal session credential
// and the pool of AI service API keys.
package keychain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/keychain")

var (
	ErrNoSession = errors.New("no session cookie configured, paste your portal session cookie in Settings")
	ErrNoApiKeys = errors.New("no API key configured for the AI service, add one in Settings")

	ErrKeyExists   = errors.New("API key already exists")
	ErrKeyNotFound = errors.New("API key not found")
)

type Service struct {
	db *sql.DB
	// round-robin cursor over the key pool; occasional key reuse under
	// concurrent access is acceptable, corruption is not
	keyIndex atomic.Uint64
}

func NewService(database *sql.DB) *Service {
	return &Service{db: database}
}

// Session returns the full Cookie header value last saved by the
// operator. Staleness is not tracked here, the portal reports it with a
// login redirect.
func (s *Service) Session(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "service:Session")
	defer span.End()

	var credential string
	err := s.db.QueryRowContext(
		ctx, "SELECT credential FROM session WHERE id = 0",
	).Scan(&credential)
	if err == sql.ErrNoRows {
		span.SetStatus(codes.Error, ErrNoSession.Error())
		return "", ErrNoSession
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read session")
		return "", err
	}
	if strings.TrimSpace(credential) == "" {
		span.SetStatus(codes.Error, ErrNoSession.Error())
		return "", ErrNoSession
	}
	return credential, nil
}

// SetSession replaces the stored credential outright.
func (s *Service) SetSession(ctx context.Context, credential string) error {
	ctx, span := tracer.Start(ctx, "service:SetSession")
	defer span.End()

	credential = strings.TrimSpace(credential)
	if credential == "" {
		err := fmt.Errorf("session cookie must be a non-empty string")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		"INSERT OR REPLACE INTO session (id, credential) VALUES (0, ?)",
		credential,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save session")
		return err
	}
	slog.InfoContext(ctx, "session cookie updated")
	return nil
}

func (s *Service) AddKey(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "service:AddKey")
	defer span.End()

	key = strings.TrimSpace(key)
	if key == "" {
		err := fmt.Errorf("API key must be a non-empty string")
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, err := s.db.ExecContext(
		ctx,
		"INSERT INTO api_key (key, created_at) VALUES (?, ?)",
		key, time.Now().Unix(),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		span.SetStatus(codes.Error, ErrKeyExists.Error())
		return ErrKeyExists
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save api key")
		return err
	}
	return nil
}

func (s *Service) RemoveKey(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "service:RemoveKey")
	defer span.End()

	res, err := s.db.ExecContext(
		ctx, "DELETE FROM api_key WHERE key = ?", strings.TrimSpace(key),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete api key")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, ErrKeyNotFound.Error())
		return ErrKeyNotFound
	}
	return nil
}

func (s *Service) CountKeys(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "service:CountKeys")
	defer span.End()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_key").Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return count, nil
}

func (s *Service) keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx, "SELECT key FROM api_key ORDER BY created_at, key",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		err := rows.Scan(&key)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// NextKey hands out pool keys round-robin.
func (s *Service) NextKey(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "service:NextKey")
	defer span.End()

	keys, err := s.keys(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list api keys")
		return "", err
	}
	if len(keys) == 0 {
		span.SetStatus(codes.Error, ErrNoApiKeys.Error())
		return "", ErrNoApiKeys
	}

	idx := (s.keyIndex.Add(1) - 1) % uint64(len(keys))
	return keys[idx], nil
}
