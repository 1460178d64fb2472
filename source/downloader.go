// Package source fetches repository source trees and enumerates the files
// that feed the indexing pipeline.
package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/codectx/repograph/helper"
	gogit "github.com/go-git/go-git/v5"
)

// Directories never descended into when listing source files.
var skipDirs = map[string]bool{
	"node_modules": true,
	"venv":         true,
	"vendor":       true,
	"__pycache__":  true,
}

// Downloader clones repositories beneath a base directory and keeps
// existing clones fresh with a pull.
type Downloader struct {
	basePath string
	logger   *slog.Logger
}

// NewDownloader creates a downloader rooted at basePath, creating the
// directory when needed.
func NewDownloader(basePath string, logger *slog.Logger) (*Downloader, error) {
	err := os.MkdirAll(basePath, 0o755)
	if err != nil {
		return nil, helper.NewError("create base path", err)
	}
	return &Downloader{
		basePath: basePath,
		logger:   logger,
	}, nil
}

// Download clones url into basePath/name, or pulls when a clone already
// exists. It returns the local path of the working tree.
func (d *Downloader) Download(ctx context.Context, url string, name string) (string, error) {
	path := filepath.Join(d.basePath, name)

	_, err := os.Stat(path)
	if err == nil {
		d.logger.Info("Repository already cloned, pulling", slog.String("path", path))
		err = d.pull(ctx, path)
		if err == nil {
			return path, nil
		}
		d.logger.Warn("Pull failed, removing and re-cloning",
			slog.String("path", path), slog.String("error", err.Error()))
		err = os.RemoveAll(path)
		if err != nil {
			return "", helper.NewError("remove stale clone", err)
		}
	}

	d.logger.Info("Cloning repository", slog.String("url", url), slog.String("path", path))
	_, err = gogit.PlainCloneContext(ctx, path, false, &gogit.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return "", helper.NewError("clone repository", err)
	}
	return path, nil
}

func (d *Downloader) pull(ctx context.Context, path string) error {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = worktree.PullContext(ctx, &gogit.PullOptions{})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// ListSourceFiles walks the tree below path and returns the relative paths
// of all Python source files, skipping hidden and dependency directories.
func ListSourceFiles(path string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(path, func(current string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if current != path && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ".py") {
			return nil
		}
		relative, err := filepath.Rel(path, current)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(relative))
		return nil
	})
	if err != nil {
		return nil, helper.NewError("walk source tree", err)
	}
	return files, nil
}

// Read returns the content of one file below the repository root.
func Read(root string, relative string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(relative)))
	if err != nil {
		return nil, helper.NewError("read source file", err)
	}
	return content, nil
}
