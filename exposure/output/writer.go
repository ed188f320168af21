package output

import (
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/exposed/exposure"
	"github.com/crytic/exposed/logging"
	"github.com/crytic/exposed/utils"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Summary describes the outcome of writing a set of generated files.
type Summary struct {
	// Written lists the paths of files which were written, because they were new or changed.
	Written []string

	// Skipped lists the paths of files which were unchanged since they were last written.
	Skipped []string

	// Removed lists the paths of previously generated files which are no longer generated and were deleted.
	Removed []string

	// Run describes this run.
	Run RunRecord

	// PreviousRun describes the previous run into the same output root, or nil if there was none.
	PreviousRun *RunRecord
}

// Changed reports whether the run wrote or removed any file.
func (s *Summary) Changed() bool {
	return len(s.Written) > 0 || len(s.Removed) > 0
}

// Writer writes generated files below an output root and tracks them in an index, so unchanged files are not
// rewritten and files which are no longer generated are removed.
type Writer struct {
	// outputRoot is the directory every generated file must be placed in.
	outputRoot string

	// runID identifies the run the writer belongs to.
	runID string

	// force rewrites every file, regardless of whether it changed.
	force bool

	// index tracks the generated files of the output root.
	index *index

	// logger describes the Writer's log object that can be used to log important events
	logger *logging.Logger
}

// NewWriter creates the output root if needed and opens its index. The returned Writer must be closed.
func NewWriter(outputRoot string, runID string, force bool) (*Writer, error) {
	outputRoot = filepath.Clean(outputRoot)
	if err := utils.MakeDirectory(outputRoot); err != nil {
		return nil, errors.Wrapf(err, "could not create output directory '%s'", outputRoot)
	}
	idx, err := openIndex(outputRoot)
	if err != nil {
		return nil, err
	}
	return &Writer{
		outputRoot: outputRoot,
		runID:      runID,
		force:      force,
		index:      idx,
		logger:     logging.GlobalLogger.NewSubLogger("module", logging.OUTPUT_SERVICE),
	}, nil
}

// Close releases the index of the output root.
func (w *Writer) Close() error {
	return errors.WithStack(w.index.close())
}

// relativePath returns the slash-separated path of the given destination relative to the output root, or an error
// if the destination is not below it.
func (w *Writer) relativePath(destination string) (string, error) {
	relativePath, below := utils.RelativeSubPath(w.outputRoot, destination)
	if !below {
		return "", errors.Errorf("generated file '%s' is not located in output directory '%s'", destination, w.outputRoot)
	}
	return relativePath, nil
}

// Write writes the provided generated files, keyed by destination path. Files whose content hash matches the index
// and which still exist on disk are skipped unless the Writer forces rewrites. Indexed files which are not part of
// files are deleted.
func (w *Writer) Write(files map[string]*exposure.GeneratedFile) (*Summary, error) {
	summary := &Summary{
		Written: make([]string, 0),
		Skipped: make([]string, 0),
		Removed: make([]string, 0),
	}

	// Resolve every destination before touching the disk.
	destinations := maps.Keys(files)
	slices.Sort(destinations)
	relativePaths := make(map[string]string, len(destinations))
	contentHashes := make(map[string]string, len(destinations))
	for _, destination := range destinations {
		relativePath, err := w.relativePath(destination)
		if err != nil {
			return nil, err
		}
		relativePaths[destination] = relativePath
		contentHashes[relativePath] = files[destination].ContentHash
	}

	for _, destination := range destinations {
		file := files[destination]
		relativePath := relativePaths[destination]

		written, err := w.writeFile(destination, relativePath, file)
		if err != nil {
			return nil, err
		}
		if written {
			summary.Written = append(summary.Written, destination)
			w.logger.Debug("Wrote ", destination)
		} else {
			summary.Skipped = append(summary.Skipped, destination)
			w.logger.Trace("Skipped unchanged ", destination)
		}
	}

	// Delete files of previous runs which are no longer generated.
	indexed, err := w.index.files()
	if err != nil {
		return nil, err
	}
	for _, relativePath := range indexed {
		if _, generated := contentHashes[relativePath]; generated {
			continue
		}
		removed, err := w.removeFile(relativePath)
		if err != nil {
			return nil, err
		}
		summary.Removed = append(summary.Removed, removed)
		w.logger.Debug("Removed stale ", removed)
	}

	// Record the run.
	previousRun, err := w.index.lastRun()
	if err != nil {
		return nil, err
	}
	summary.PreviousRun = previousRun
	summary.Run = RunRecord{
		ID:        w.runID,
		Hash:      ComputeRunHash(contentHashes),
		Timestamp: time.Now(),
	}
	notifyRunStatus(w.logger, summary.Run, previousRun)
	if err = w.index.putLastRun(summary.Run); err != nil {
		return nil, err
	}
	return summary, nil
}

// writeFile writes a single generated file unless it is unchanged. Returns whether the file was written.
func (w *Writer) writeFile(destination string, relativePath string, file *exposure.GeneratedFile) (bool, error) {
	record, err := w.index.file(relativePath)
	if err != nil {
		return false, err
	}
	if !w.force && record != nil && record.ContentHash == file.ContentHash {
		if info, err := os.Stat(destination); err == nil && !info.IsDir() {
			return false, nil
		}
	}

	if err = utils.MakeDirectory(filepath.Dir(destination)); err != nil {
		return false, errors.WithStack(err)
	}
	if err = os.WriteFile(destination, []byte(file.SourceText), 0644); err != nil {
		return false, errors.Wrapf(err, "could not write generated file '%s'", destination)
	}
	err = w.index.putFile(relativePath, fileRecord{
		ContentHash: file.ContentHash,
		SourcePath:  file.SourcePath,
	})
	return true, err
}

// removeFile deletes a previously generated file and any directories left empty by it, then forgets the file.
// Returns the path of the removed file.
func (w *Writer) removeFile(relativePath string) (string, error) {
	path := filepath.Join(w.outputRoot, filepath.FromSlash(relativePath))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "could not remove stale generated file '%s'", path)
	}
	utils.RemoveEmptyParents(w.outputRoot, path)
	return path, w.index.deleteFile(relativePath)
}

// Clean deletes the output root with every generated file and its index.
func Clean(outputRoot string) error {
	if err := utils.DeleteDirectory(outputRoot); err != nil {
		return errors.Wrapf(err, "could not delete output directory '%s'", outputRoot)
	}
	return nil
}
