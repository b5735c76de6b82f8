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

package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framehub/framehub/pkg/logger"
	"github.com/framehub/framehub/pkg/models"
)

// NewPool dials the configured Postgres cluster and returns a pgx pool.
func NewPool(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, nil
	}

	dbCfg := *cfg
	if dbCfg.Port == 0 {
		dbCfg.Port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", dbCfg.Host, dbCfg.Port),
		Path:   "/" + dbCfg.Database,
	}

	if dbCfg.Username != "" {
		if dbCfg.Password != "" {
			connURL.User = url.UserPassword(dbCfg.Username, dbCfg.Password)
		} else {
			connURL.User = url.User(dbCfg.Username)
		}
	}

	query := connURL.Query()

	sslMode := dbCfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	appName := dbCfg.ApplicationName
	if appName == "" {
		appName = "framehub"
	}

	query.Set("application_name", appName)

	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("db: failed to parse connection string: %w", err)
	}

	if dbCfg.MaxConnections > 0 {
		poolConfig.MaxConns = dbCfg.MaxConnections
	}

	if dbCfg.MinConnections > 0 {
		poolConfig.MinConns = dbCfg.MinConnections
	}

	if dbCfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(dbCfg.MaxConnLifetime)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("db: failed to initialize pool: %w", err)
	}

	if log != nil {
		log.Info().
			Str("host", dbCfg.Host).
			Int("port", dbCfg.Port).
			Int32("max_conns", poolConfig.MaxConns).
			Msg("Connected to Postgres")
	}

	return pool, nil
}
