/*
 * Copyright 2025 The FrameHub Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package db persists registry and observed state to Postgres via pgx.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

const (
	upsertProfileSQL = `
INSERT INTO profiles (
	profile_id,
	search_filter,
	exclude_paths,
	created_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5
)
ON CONFLICT (profile_id) DO UPDATE SET
	search_filter = EXCLUDED.search_filter,
	exclude_paths = EXCLUDED.exclude_paths,
	updated_at = EXCLUDED.updated_at`

	selectProfileSQL = `
SELECT profile_id, search_filter, exclude_paths, created_at, updated_at
FROM profiles
WHERE profile_id = $1`

	listProfilesSQL = `
SELECT profile_id, search_filter, exclude_paths, created_at, updated_at
FROM profiles
ORDER BY profile_id`

	deleteProfileSQL = `DELETE FROM profiles WHERE profile_id = $1`

	upsertDeviceSQL = `
INSERT INTO devices (
	device_id,
	address,
	profile_id,
	settings,
	created_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)
ON CONFLICT (device_id) DO UPDATE SET
	address = EXCLUDED.address,
	profile_id = EXCLUDED.profile_id,
	settings = EXCLUDED.settings,
	updated_at = EXCLUDED.updated_at`

	selectDeviceSQL = `
SELECT device_id, address, profile_id, settings, created_at, updated_at
FROM devices
WHERE device_id = $1`

	listDevicesSQL = `
SELECT device_id, address, profile_id, settings, created_at, updated_at
FROM devices
ORDER BY device_id`

	deleteDeviceSQL = `DELETE FROM devices WHERE device_id = $1`

	upsertDeviceStatusSQL = `
INSERT INTO device_status (
	device_id,
	current_image,
	current_image_url,
	last_reported_profile,
	connectivity,
	last_seen,
	error_reported,
	ip_address,
	mac_address,
	display_width,
	display_height,
	app_version,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (device_id) DO UPDATE SET
	current_image = EXCLUDED.current_image,
	current_image_url = EXCLUDED.current_image_url,
	last_reported_profile = EXCLUDED.last_reported_profile,
	connectivity = EXCLUDED.connectivity,
	last_seen = EXCLUDED.last_seen,
	error_reported = EXCLUDED.error_reported,
	ip_address = EXCLUDED.ip_address,
	mac_address = EXCLUDED.mac_address,
	display_width = EXCLUDED.display_width,
	display_height = EXCLUDED.display_height,
	app_version = EXCLUDED.app_version,
	updated_at = EXCLUDED.updated_at`

	selectDeviceStatusSQL = `
SELECT device_id, current_image, current_image_url, last_reported_profile,
	connectivity, last_seen, error_reported, ip_address, mac_address,
	display_width, display_height, app_version
FROM device_status
WHERE device_id = $1`

	listDeviceStatusesSQL = `
SELECT device_id, current_image, current_image_url, last_reported_profile,
	connectivity, last_seen, error_reported, ip_address, mac_address,
	display_width, display_height, app_version
FROM device_status
ORDER BY device_id`

	deleteDeviceStatusSQL = `DELETE FROM device_status WHERE device_id = $1`

	upsertPendingDeviceSQL = `
INSERT INTO pending_devices (
	device_id,
	address,
	first_seen,
	last_seen,
	reports
) VALUES (
	$1,$2,$3,$4,$5
)
ON CONFLICT (device_id) DO UPDATE SET
	address = EXCLUDED.address,
	last_seen = EXCLUDED.last_seen,
	reports = EXCLUDED.reports`

	listPendingDevicesSQL = `
SELECT device_id, address, first_seen, last_seen, reports
FROM pending_devices
ORDER BY first_seen`

	deletePendingDeviceSQL = `DELETE FROM pending_devices WHERE device_id = $1`
)

// Store implements Service on a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// New connects to Postgres, applies migrations, and returns a ready Store.
func New(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*Store, error) {
	pool, err := NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}

	return NewWithPool(pool, log), nil
}

// NewWithPool wraps an existing pool. The caller owns migrations.
func NewWithPool(pool *pgxpool.Pool, log logger.Logger) *Store {
	return &Store{pool: pool, logger: log}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func buildProfileArgs(p *models.Profile) []interface{} {
	created := p.CreatedAt
	if created.IsZero() {
		created = nowUTC()
	}

	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = nowUTC()
	}

	excluded := p.ExcludePaths
	if excluded == nil {
		excluded = []string{}
	}

	return []interface{}{
		p.ProfileID,
		p.SearchFilter,
		excluded,
		created.UTC(),
		updated.UTC(),
	}
}

func buildDeviceArgs(d *models.Device) ([]interface{}, error) {
	settings, err := json.Marshal(d.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal device settings: %w", err)
	}

	created := d.CreatedAt
	if created.IsZero() {
		created = nowUTC()
	}

	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = nowUTC()
	}

	return []interface{}{
		d.DeviceID,
		d.Address,
		d.ProfileID,
		settings,
		created.UTC(),
		updated.UTC(),
	}, nil
}

func buildDeviceStatusArgs(st *models.DeviceStatus) []interface{} {
	connectivity := st.Connectivity
	if connectivity == "" {
		connectivity = models.ConnectivityUnknown
	}

	return []interface{}{
		st.DeviceID,
		st.CurrentImage,
		st.CurrentImageURL,
		st.LastReportedProfile,
		string(connectivity),
		st.LastSeen.UTC(),
		st.ErrorReported,
		st.IPAddress,
		st.MACAddress,
		st.DisplayWidth,
		st.DisplayHeight,
		st.AppVersion,
		nowUTC(),
	}
}

func buildPendingDeviceArgs(p *models.PendingDevice) []interface{} {
	first := p.FirstSeen
	if first.IsZero() {
		first = nowUTC()
	}

	last := p.LastSeen
	if last.IsZero() {
		last = first
	}

	return []interface{}{
		p.DeviceID,
		p.Address,
		first.UTC(),
		last.UTC(),
		p.Reports,
	}
}

// Profile operations.

func (s *Store) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if _, err := s.pool.Exec(ctx, upsertProfileSQL, buildProfileArgs(profile)...); err != nil {
		return fmt.Errorf("%w: upsert profile: %w", ErrFailedToExec, err)
	}

	return nil
}

func (s *Store) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	row := s.pool.QueryRow(ctx, selectProfileSQL, profileID)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w: get profile: %w", ErrFailedToScan, err)
	}

	return p, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	rows, err := s.pool.Query(ctx, listProfilesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var profiles []*models.Profile

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list profiles: %w", ErrFailedToScan, err)
		}

		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

func (s *Store) DeleteProfile(ctx context.Context, profileID string) error {
	if _, err := s.pool.Exec(ctx, deleteProfileSQL, profileID); err != nil {
		return fmt.Errorf("%w: delete profile: %w", ErrFailedToExec, err)
	}

	return nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile

	if err := row.Scan(&p.ProfileID, &p.SearchFilter, &p.ExcludePaths, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	return &p, nil
}

// Device operations.

func (s *Store) UpsertDevice(ctx context.Context, device *models.Device) error {
	args, err := buildDeviceArgs(device)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, upsertDeviceSQL, args...); err != nil {
		return fmt.Errorf("%w: upsert device: %w", ErrFailedToExec, err)
	}

	return nil
}

func (s *Store) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	row := s.pool.QueryRow(ctx, selectDeviceSQL, deviceID)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w: get device: %w", ErrFailedToScan, err)
	}

	return d, nil
}

func (s *Store) ListDevices(ctx context.Context) ([]*models.Device, error) {
	rows, err := s.pool.Query(ctx, listDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list devices: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var devices []*models.Device

	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list devices: %w", ErrFailedToScan, err)
		}

		devices = append(devices, d)
	}

	return devices, rows.Err()
}

func (s *Store) DeleteDevice(ctx context.Context, deviceID string) error {
	if _, err := s.pool.Exec(ctx, deleteDeviceSQL, deviceID); err != nil {
		return fmt.Errorf("%w: delete device: %w", ErrFailedToExec, err)
	}

	return nil
}

func scanDevice(row pgx.Row) (*models.Device, error) {
	var (
		d        models.Device
		settings []byte
	)

	if err := row.Scan(&d.DeviceID, &d.Address, &d.ProfileID, &settings, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}

	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &d.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal device settings: %w", err)
		}
	}

	return &d, nil
}

// Observed state operations.

func (s *Store) UpsertDeviceStatus(ctx context.Context, status *models.DeviceStatus) error {
	if _, err := s.pool.Exec(ctx, upsertDeviceStatusSQL, buildDeviceStatusArgs(status)...); err != nil {
		return fmt.Errorf("%w: upsert device status: %w", ErrFailedToExec, err)
	}

	return nil
}

// UpsertDeviceStatuses writes a batch of dirty status rows in one round trip.
func (s *Store) UpsertDeviceStatuses(ctx context.Context, statuses []*models.DeviceStatus) error {
	if len(statuses) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	for _, st := range statuses {
		batch.Queue(upsertDeviceStatusSQL, buildDeviceStatusArgs(st)...)
	}

	return sendBatchExecAll(ctx, batch, s.pool.SendBatch, "device status upsert")
}

func (s *Store) GetDeviceStatus(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	row := s.pool.QueryRow(ctx, selectDeviceStatusSQL, deviceID)

	st, err := scanDeviceStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%w: get device status: %w", ErrFailedToScan, err)
	}

	return st, nil
}

func (s *Store) ListDeviceStatuses(ctx context.Context) ([]*models.DeviceStatus, error) {
	rows, err := s.pool.Query(ctx, listDeviceStatusesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list device statuses: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var statuses []*models.DeviceStatus

	for rows.Next() {
		st, err := scanDeviceStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: list device statuses: %w", ErrFailedToScan, err)
		}

		statuses = append(statuses, st)
	}

	return statuses, rows.Err()
}

func (s *Store) DeleteDeviceStatus(ctx context.Context, deviceID string) error {
	if _, err := s.pool.Exec(ctx, deleteDeviceStatusSQL, deviceID); err != nil {
		return fmt.Errorf("%w: delete device status: %w", ErrFailedToExec, err)
	}

	return nil
}

func scanDeviceStatus(row pgx.Row) (*models.DeviceStatus, error) {
	var (
		st           models.DeviceStatus
		connectivity string
	)

	err := row.Scan(&st.DeviceID, &st.CurrentImage, &st.CurrentImageURL, &st.LastReportedProfile,
		&connectivity, &st.LastSeen, &st.ErrorReported, &st.IPAddress, &st.MACAddress,
		&st.DisplayWidth, &st.DisplayHeight, &st.AppVersion)
	if err != nil {
		return nil, err
	}

	st.Connectivity = models.Connectivity(connectivity)

	return &st, nil
}

// Discovery operations.

func (s *Store) UpsertPendingDevice(ctx context.Context, pending *models.PendingDevice) error {
	if _, err := s.pool.Exec(ctx, upsertPendingDeviceSQL, buildPendingDeviceArgs(pending)...); err != nil {
		return fmt.Errorf("%w: upsert pending device: %w", ErrFailedToExec, err)
	}

	return nil
}

func (s *Store) ListPendingDevices(ctx context.Context) ([]*models.PendingDevice, error) {
	rows, err := s.pool.Query(ctx, listPendingDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending devices: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var pending []*models.PendingDevice

	for rows.Next() {
		var p models.PendingDevice

		if err := rows.Scan(&p.DeviceID, &p.Address, &p.FirstSeen, &p.LastSeen, &p.Reports); err != nil {
			return nil, fmt.Errorf("%w: list pending devices: %w", ErrFailedToScan, err)
		}

		pending = append(pending, &p)
	}

	return pending, rows.Err()
}

func (s *Store) DeletePendingDevice(ctx context.Context, deviceID string) error {
	if _, err := s.pool.Exec(ctx, deletePendingDeviceSQL, deviceID); err != nil {
		return fmt.Errorf("%w: delete pending device: %w", ErrFailedToExec, err)
	}

	return nil
}
