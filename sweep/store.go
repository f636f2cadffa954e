package sweep

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrPointNotFound is returned when an archive holds no record for a key.
var ErrPointNotFound = errors.New("sweep point not found")

const (
	tablePoints  = "points"
	storeTimeout = 3 * time.Second
)

// Store archives sweep records in a sqlite database, so that long sweeps
// survive process exit. During a sweep only the collector writes to it.
type Store struct {
	db *sql.DB
}

// OpenStore opens the sqlite database at fpath, creating it and its schema
// when missing.
func OpenStore(fpath string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", fpath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &Store{db: db}, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL,
	point INTEGER NOT NULL,
	value REAL NOT NULL,
	status INTEGER NOT NULL,
	err TEXT NOT NULL,
	bare BLOB,
	dressed BLOB,
	vecs BLOB,
	PRIMARY KEY (run_id, point)
) STRICT`, tablePoints)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// SavePoint writes one point's record, replacing any previous record under
// the same run and point.
func (s *Store) SavePoint(ctx context.Context, runID string, point int, p Point) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	bare, err := msgpack.Marshal(p.Bare)
	if err != nil {
		return errors.Wrap(err, "")
	}
	dressed, err := msgpack.Marshal(p.Dressed)
	if err != nil {
		return errors.Wrap(err, "")
	}
	vecs, err := msgpack.Marshal(encodeVecs(p.Vecs))
	if err != nil {
		return errors.Wrap(err, "")
	}
	errText := ""
	if p.Err != nil {
		errText = p.Err.Error()
	}

	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (run_id, point, value, status, err, bare, dressed, vecs) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, tablePoints)
	if _, err := s.db.ExecContext(ctx, sqlStr, runID, point, p.Value, int(p.Status), errText, bare, dressed, vecs); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// LoadPoint reads one point's record back.
func (s *Store) LoadPoint(ctx context.Context, runID string, point int) (Point, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sqlStr := fmt.Sprintf(`SELECT value, status, err, bare, dressed, vecs FROM %s WHERE run_id = ? AND point = ?`, tablePoints)
	var (
		p       Point
		status  int
		errText string
		bare    []byte
		dressed []byte
		vecs    []byte
	)
	err := s.db.QueryRowContext(ctx, sqlStr, runID, point).Scan(&p.Value, &status, &errText, &bare, &dressed, &vecs)
	switch {
	case err == sql.ErrNoRows:
		return Point{}, errors.Wrapf(ErrPointNotFound, "run %s point %d", runID, point)
	case err != nil:
		return Point{}, errors.Wrap(err, "")
	}

	p.Status = Status(status)
	if errText != "" {
		p.Err = errors.New(errText)
	}
	if err := msgpack.Unmarshal(bare, &p.Bare); err != nil {
		return Point{}, errors.Wrap(err, "")
	}
	if err := msgpack.Unmarshal(dressed, &p.Dressed); err != nil {
		return Point{}, errors.Wrap(err, "")
	}
	var enc [][]float64
	if err := msgpack.Unmarshal(vecs, &enc); err != nil {
		return Point{}, errors.Wrap(err, "")
	}
	p.Vecs = decodeVecs(enc)
	return p, nil
}

// Runs lists the run IDs present in the archive, ascending.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	sqlStr := fmt.Sprintf(`SELECT DISTINCT run_id FROM %s ORDER BY run_id`, tablePoints)
	rows, err := s.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "")
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return runs, nil
}

// encodeVecs flattens complex eigenvectors into alternating real and
// imaginary parts, which msgpack can carry.
func encodeVecs(vecs [][]complex128) [][]float64 {
	if vecs == nil {
		return nil
	}
	enc := make([][]float64, len(vecs))
	for i, vec := range vecs {
		enc[i] = make([]float64, 2*len(vec))
		for j, v := range vec {
			enc[i][2*j] = real(v)
			enc[i][2*j+1] = imag(v)
		}
	}
	return enc
}

func decodeVecs(enc [][]float64) [][]complex128 {
	if enc == nil {
		return nil
	}
	vecs := make([][]complex128, len(enc))
	for i, e := range enc {
		vecs[i] = make([]complex128, len(e)/2)
		for j := range vecs[i] {
			vecs[i][j] = complex(e[2*j], e[2*j+1])
		}
	}
	return vecs
}
