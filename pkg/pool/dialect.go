package pool

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// supported dialects, selected by the scheme of the connection URL
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// opener knows how to open a *sqlx.DB for a parsed connection URL
type opener struct {
	dialect  string
	redacted string
	open     func() (*sqlx.DB, error)
}

// resolve parses the connection URL and prepares the dialect specific opener.
// Network dialects always get a verifying TLS setup.
func resolve(rawURL, caPath string) (*opener, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, &ConfigError{Reason: "database url is not set"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &ConfigError{Reason: "can't parse database url", Err: err}
	}

	switch strings.ToLower(u.Scheme) {
	case "mysql":
		return mysqlOpener(u, caPath)
	case "postgres", "postgresql":
		return postgresOpener(u, caPath)
	case "sqlite", "sqlite3", "file":
		return sqliteOpener(u)
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported database scheme %q", u.Scheme)}
	}
}

func mysqlOpener(u *url.URL, caPath string) (*opener, error) {
	if u.Hostname() == "" {
		return nil, &ConfigError{Reason: "database host is not set"}
	}
	tlsCfg, err := tlsConfig(caPath, u.Hostname())
	if err != nil {
		return nil, err
	}

	port := u.Port()
	if port == "" {
		port = "3306"
	}

	mcfg := mysql.NewConfig()
	mcfg.Net = "tcp"
	mcfg.Addr = net.JoinHostPort(u.Hostname(), port)
	mcfg.User = u.User.Username()
	mcfg.Passwd, _ = u.User.Password()
	mcfg.DBName = strings.TrimPrefix(u.Path, "/")
	mcfg.TLS = tlsCfg
	mcfg.ParseTime = true
	mcfg.Loc = time.Local

	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, &ConfigError{Reason: "invalid mysql settings", Err: err}
	}
	return &opener{
		dialect:  DialectMySQL,
		redacted: u.Redacted(),
		open: func() (*sqlx.DB, error) {
			return sqlx.NewDb(sql.OpenDB(connector), DialectMySQL), nil
		},
	}, nil
}

func postgresOpener(u *url.URL, caPath string) (*opener, error) {
	if u.Hostname() == "" {
		return nil, &ConfigError{Reason: "database host is not set"}
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "verify-full")
	}
	if caPath != "" && q.Get("sslrootcert") == "" {
		if _, err := os.Stat(caPath); err != nil {
			return nil, &ConfigError{Reason: "can't read ca certificate", Err: err}
		}
		q.Set("sslrootcert", caPath)
	}
	u.RawQuery = q.Encode()
	dsn := u.String()

	return &opener{
		dialect:  DialectPostgres,
		redacted: u.Redacted(),
		open: func() (*sqlx.DB, error) {
			return sqlx.Open(DialectPostgres, dsn)
		},
	}, nil
}

// sqliteOpener serves local files, sqlite://news.db or sqlite:///var/lib/news.db.
// There is no network transport, hence no TLS.
func sqliteOpener(u *url.URL) (*opener, error) {
	path := u.Host + u.Path
	if u.Scheme == "file" {
		path = u.Opaque + u.Path
	}
	if path == "" {
		return nil, &ConfigError{Reason: "sqlite database path is not set"}
	}
	dsn := "file:" + path + "?cache=shared&mode=rwc&_txlock=immediate" +
		"&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	return &opener{
		dialect:  DialectSQLite,
		redacted: u.Redacted(),
		open: func() (*sqlx.DB, error) {
			return sqlx.Open(DialectSQLite, dsn)
		},
	}, nil
}

// tlsConfig builds a client TLS config with hostname verification and full chain validation.
// With caPath set only that bundle is trusted, otherwise the system pool is used.
func tlsConfig(caPath, host string) (*tls.Config, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		roots = x509.NewCertPool()
	}
	if caPath != "" {
		pem, err := os.ReadFile(caPath) //nolint:gosec // path comes from configuration
		if err != nil {
			return nil, &ConfigError{Reason: "can't read ca certificate", Err: err}
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, &ConfigError{Reason: fmt.Sprintf("no certificates found in %s", caPath)}
		}
	}
	return &tls.Config{
		RootCAs:    roots,
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}, nil
}
