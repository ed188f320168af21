package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// CreateFile will create a file at the given path and file name combination. If the path is the empty string, the
// file will be created in the current working directory
func CreateFile(path string, fileName string) (*os.File, error) {
	// By default, the path will be the name of the file
	filePath := fileName

	// Check to see if the file needs to be created in another directory or the working directory
	if path != "" {
		// Make the directory, if it does not exist already
		err := MakeDirectory(path)
		if err != nil {
			return nil, err
		}
		// Since the path is non-empty, concatenate the path with the name of the file
		filePath = filepath.Join(path, fileName)
	}

	// Create the file
	file, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return file, nil
}

// MakeDirectory creates a directory at the given path, including any parent directories which do not exist.
// Returns an error, if one occurred.
func MakeDirectory(dirToMake string) error {
	dirInfo, err := os.Stat(dirToMake)
	if err != nil {
		// Directory does not exist, as expected.
		if os.IsNotExist(err) {
			err = os.MkdirAll(dirToMake, 0755)
			if err != nil {
				return errors.WithStack(err)
			}

			// Successfully made the directory
			return nil
		}
		// Some other sort of error, throw it
		return errors.WithStack(err)
	}

	// dirToMake is a file, throw an error accordingly
	if !dirInfo.IsDir() {
		return fmt.Errorf("there is a file with the same name as %s", dirToMake)
	}

	// Directory already exists, good to go
	return nil
}

// DeleteDirectory deletes a directory at the provided path. Returns an error if one occurred.
func DeleteDirectory(directoryPath string) error {
	// Get information on the directory
	dirInfo, err := os.Stat(directoryPath)
	if err != nil {
		// If the directory does not exist, nothing needs to be done
		if os.IsNotExist(err) {
			return nil
		}
		// If any other type of error occurred, return it
		return errors.WithStack(err)
	}

	// Make sure the path is a directory and not a file
	if !dirInfo.IsDir() {
		return fmt.Errorf("cannot delete directory as the provided path refers to a file")
	}

	// Delete directory and its contents
	return errors.WithStack(os.RemoveAll(directoryPath))
}

// RelativeSubPath returns the slash-separated path of targetPath relative to the root directory, and whether
// targetPath is located strictly below it. Both paths are cleaned first; the root itself is not below itself.
func RelativeSubPath(root string, targetPath string) (string, bool) {
	relativePath, err := filepath.Rel(filepath.Clean(root), filepath.Clean(targetPath))
	if err != nil {
		return "", false
	}
	if relativePath == "." || relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(relativePath), true
}

// RemoveEmptyParents removes the parent directories of targetPath which are empty, walking up until the root
// directory, which is never removed.
func RemoveEmptyParents(root string, targetPath string) {
	root = filepath.Clean(root)
	for directory := filepath.Dir(filepath.Clean(targetPath)); ; directory = filepath.Dir(directory) {
		if _, below := RelativeSubPath(root, directory); !below {
			return
		}
		entries, err := os.ReadDir(directory)
		if err != nil || len(entries) > 0 {
			return
		}
		if err = os.Remove(directory); err != nil {
			return
		}
	}
}
