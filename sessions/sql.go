package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/models"
)

// question mark placement everywhere, sqlx rebinds per driver. tested and
// working are postgres, mysql and sqlite3.

var sessionsTable = `CREATE TABLE IF NOT EXISTS sessions (
	id varchar(256) NOT NULL PRIMARY KEY,
	data text NOT NULL,
	expires_at bigint NOT NULL
);`

const sessionSelector = `SELECT data, expires_at FROM sessions WHERE id=?`

// SQLStore keeps sessions server side, the cookie only carries an opaque id.
// The database is picked by the url scheme, sqlite3 files spring into
// existence as needed.
type SQLStore struct {
	db *sqlx.DB

	// CookieName is the cookie the session id travels under.
	CookieName string
	// Lifetime is how long a stored session stays live without a save.
	Lifetime time.Duration
	// Secure marks the cookie https-only.
	Secure bool
}

// NewSQLStore opens the db specified by dbURL, creates the sessions table if
// necessary and returns a store safe for concurrent use.
func NewSQLStore(ctx context.Context, dbURL string) (*SQLStore, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, err
	}
	driver := u.Scheme

	log := common.Logger(ctx)
	// driver must be one of these for sqlx to work, double check:
	switch driver {
	case "postgres", "pgx", "mysql", "sqlite3":
	default:
		return nil, errors.New("invalid db driver, refer to the code")
	}

	if driver == "sqlite3" {
		// make all the dirs so we can make the file..
		err := os.MkdirAll(filepath.Dir(u.Path), 0755)
		if err != nil {
			return nil, err
		}
	}

	uri := u.String()
	if driver != "postgres" {
		// postgres seems to need this as a prefix in lib/pq, everyone else wants it stripped of scheme
		uri = strings.TrimPrefix(uri, u.Scheme+"://")
	}

	sqldb, err := sql.Open(driver, uri)
	if err != nil {
		log.WithFields(logrus.Fields{"url": common.MaskPassword(u)}).WithError(err).Error("couldn't open db")
		return nil, err
	}

	db := sqlx.NewDb(sqldb, driver)
	// force a connection and test that it worked
	if err := pingWithRetry(ctx, 10, 1*time.Second, db); err != nil {
		log.WithFields(logrus.Fields{"url": common.MaskPassword(u)}).WithError(err).Error("couldn't ping db")
		return nil, err
	}

	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, sessionsTable); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"datastore": driver}).Info("session store dialed")
	return &SQLStore{
		db:         db,
		CookieName: DefaultCookieName,
		Lifetime:   DefaultLifetime,
	}, nil
}

func pingWithRetry(ctx context.Context, attempts int, sleep time.Duration, db *sqlx.DB) (err error) {
	for i := 0; i < attempts; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}

// Open resolves the session id the cookie carries. Ids that reference
// nothing, cleanup got them usually, just start over fresh.
func (ss *SQLStore) Open(r *http.Request) (*Session, error) {
	c, err := r.Cookie(ss.CookieName)
	if err != nil {
		return New(), nil
	}

	id, err := uuid.Parse(c.Value)
	if err != nil {
		return nil, models.NewAPIError(models.ErrSessionInvalid.Code(),
			fmt.Errorf("%v: %v", models.ErrSessionInvalid, err))
	}

	ctx := r.Context()
	var data string
	var expiresAt int64
	query := ss.db.Rebind(sessionSelector)
	err = ss.db.QueryRowxContext(ctx, query, id.String()).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}

	if expiresAt < time.Now().Unix() {
		if err := ss.delete(ctx, id.String()); err != nil {
			common.Logger(ctx).WithError(err).Error("error deleting expired session")
		}
		return nil, models.NewAPIError(models.ErrSessionExpired.Code(),
			fmt.Errorf("%v: %s", models.ErrSessionExpired, id))
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, err
	}
	return open(id.String(), values), nil
}

// Save writes the session row and hands the id to the client. Untouched
// sessions stay as they are, cleared ones lose their row and their cookie.
func (ss *SQLStore) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.Empty() {
		if !s.fresh {
			if s.id != "" {
				if err := ss.delete(ctx, s.id); err != nil {
					return err
				}
			}
			ss.setCookie(w, "", -1)
		}
		return nil
	}
	if !s.modified {
		return nil
	}

	if s.id == "" {
		s.id = uuid.New().String()
	}
	payload, err := json.Marshal(s.values)
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(ss.Lifetime).Unix()

	// delete then insert, the one upsert everyone agrees on
	err = ss.tx(func(tx *sqlx.Tx) error {
		query := tx.Rebind(`DELETE FROM sessions WHERE id=?`)
		if _, err := tx.ExecContext(ctx, query, s.id); err != nil {
			return err
		}
		query = tx.Rebind(`INSERT INTO sessions (id, data, expires_at) VALUES (?, ?, ?)`)
		_, err := tx.ExecContext(ctx, query, s.id, string(payload), expiresAt)
		return err
	})
	if err != nil {
		return err
	}

	ss.setCookie(w, s.id, int(ss.Lifetime/time.Second))
	return nil
}

// Cleanup drops sessions past their expiry. Run it on a timer, nothing does
// it for you.
func (ss *SQLStore) Cleanup(ctx context.Context) error {
	query := ss.db.Rebind(`DELETE FROM sessions WHERE expires_at < ?`)
	_, err := ss.db.ExecContext(ctx, query, time.Now().Unix())
	return err
}

// Close closes the underlying database.
func (ss *SQLStore) Close() error {
	return ss.db.Close()
}

func (ss *SQLStore) delete(ctx context.Context, id string) error {
	query := ss.db.Rebind(`DELETE FROM sessions WHERE id=?`)
	_, err := ss.db.ExecContext(ctx, query, id)
	return err
}

func (ss *SQLStore) tx(f func(*sqlx.Tx) error) error {
	tx, err := ss.db.Beginx()
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (ss *SQLStore) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     ss.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   ss.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
