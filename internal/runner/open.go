/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package runner

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/ocomsoft/schemasync/internal/config"
	"github.com/ocomsoft/schemasync/internal/types"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver registered as "pgx"
	_ "github.com/lib/pq"               // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"     // SQLite driver
	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
)

// DriverName returns the database/sql driver for the database type. A
// configured driver overrides the default.
func DriverName(dbType types.DatabaseType, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	switch dbType {
	case types.DatabasePostgreSQL, types.DatabaseRedshift, types.DatabaseAuroraDSQL:
		return "postgres", nil
	case types.DatabaseMySQL, types.DatabaseTiDB:
		return "mysql", nil
	case types.DatabaseSQLite, types.DatabaseTurso:
		return "sqlite3", nil
	case types.DatabaseSQLServer:
		return "sqlserver", nil
	}
	return "", fmt.Errorf("unsupported database type: %s", dbType)
}

func defaultPort(dbType types.DatabaseType) int {
	switch dbType {
	case types.DatabaseRedshift:
		return 5439
	case types.DatabaseMySQL:
		return 3306
	case types.DatabaseTiDB:
		return 4000
	case types.DatabaseSQLServer:
		return 1433
	}
	return 5432
}

// BuildDSN builds the connection string for the database type
func BuildDSN(dbType types.DatabaseType, conn config.ConnectionConfig) (string, error) {
	if conn.DSN != "" {
		return conn.DSN, nil
	}
	port := conn.Port
	if port == 0 {
		port = defaultPort(dbType)
	}
	host := net.JoinHostPort(conn.Host, strconv.Itoa(port))

	switch dbType {
	case types.DatabasePostgreSQL, types.DatabaseRedshift, types.DatabaseAuroraDSQL:
		u := url.URL{Scheme: "postgres", Host: host, Path: "/" + conn.Name}
		if conn.User != "" {
			u.User = url.UserPassword(conn.User, conn.Password)
			if conn.Password == "" {
				u.User = url.User(conn.User)
			}
		}
		if conn.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {conn.SSLMode}}.Encode()
		}
		return u.String(), nil

	case types.DatabaseMySQL, types.DatabaseTiDB:
		cfg := mysql.NewConfig()
		cfg.User = conn.User
		cfg.Passwd = conn.Password
		cfg.Net = "tcp"
		cfg.Addr = host
		cfg.DBName = conn.Name
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil

	case types.DatabaseSQLite, types.DatabaseTurso:
		if conn.Path == "" {
			return "", fmt.Errorf("connection.path is required for %s", dbType)
		}
		return conn.Path, nil

	case types.DatabaseSQLServer:
		u := url.URL{Scheme: "sqlserver", Host: host, User: url.UserPassword(conn.User, conn.Password)}
		if conn.Name != "" {
			u.RawQuery = url.Values{"database": {conn.Name}}.Encode()
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported database type: %s", dbType)
}

// Open opens and pings a database handle for the configuration
func Open(dbType types.DatabaseType, conn config.ConnectionConfig) (*sql.DB, string, error) {
	driver, err := DriverName(dbType, conn.Driver)
	if err != nil {
		return nil, "", err
	}
	dsn, err := BuildDSN(dbType, conn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build database URL: %w", err)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	return db, driver, nil
}
