package output

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
	"golang.org/x/exp/slices"
)

// IndexFileName is the name of the index file kept inside the output root.
const IndexFileName = ".exposed-index"

var (
	// filesBucket maps the slash-separated path of a generated file, relative to the output root, to its fileRecord.
	filesBucket = []byte("files")

	// runsBucket holds the RunRecord of the last generation under lastRunKey.
	runsBucket = []byte("runs")
	lastRunKey = []byte("last")
)

// fileRecord describes a generated file as it was last written.
type fileRecord struct {
	// ContentHash is the hash of the generated source which was written.
	ContentHash string `json:"contentHash"`

	// SourcePath is the source unit path the file was generated from.
	SourcePath string `json:"sourcePath"`
}

// RunRecord describes a completed generation run.
type RunRecord struct {
	// ID identifies the run.
	ID string `json:"id"`

	// Hash is a hash over every generated file of the run.
	Hash string `json:"hash"`

	// Timestamp is when the run completed.
	Timestamp time.Time `json:"timestamp"`
}

// index is a bbolt database tracking the files generated into an output root.
type index struct {
	db *bbolt.DB
}

// openIndex opens or creates the index of the given output root, which must exist.
func openIndex(outputRoot string) (*index, error) {
	db, err := bbolt.Open(filepath.Join(outputRoot, IndexFileName), 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open index of output directory '%s'", outputRoot)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{filesBucket, runsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}
	return &index{db: db}, nil
}

// file returns the record of the generated file at the given relative path, if one exists.
func (i *index) file(relativePath string) (*fileRecord, error) {
	var record *fileRecord
	err := i.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(filesBucket).Get([]byte(relativePath))
		if data == nil {
			return nil
		}
		record = &fileRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not read index entry '%s'", relativePath)
	}
	return record, nil
}

// files returns the relative paths of every indexed file, sorted.
func (i *index) files() ([]string, error) {
	paths := make([]string, 0)
	err := i.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(filesBucket).ForEach(func(k, _ []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	slices.Sort(paths)
	return paths, nil
}

// putFile records a written file.
func (i *index) putFile(relativePath string, record fileRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(i.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(filesBucket).Put([]byte(relativePath), data)
	}))
}

// deleteFile forgets a file.
func (i *index) deleteFile(relativePath string) error {
	return errors.WithStack(i.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(filesBucket).Delete([]byte(relativePath))
	}))
}

// lastRun returns the record of the previous run, or nil if there was none.
func (i *index) lastRun() (*RunRecord, error) {
	var record *RunRecord
	err := i.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(runsBucket).Get(lastRunKey)
		if data == nil {
			return nil
		}
		record = &RunRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return record, nil
}

// putLastRun replaces the record of the previous run.
func (i *index) putLastRun(record RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(i.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).Put(lastRunKey, data)
	}))
}

func (i *index) close() error {
	return i.db.Close()
}
