package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/itish2003/guidedpath/models"
)

// FileIndexingService keeps the index in sync with guideline files on disk.
type FileIndexingService struct {
	ingester   *Ingester
	index      VectorIndex
	extensions []string
	batchSize  int
	log        *slog.Logger
}

func NewFileIndexingService(ingester *Ingester, index VectorIndex, extensions []string, batchSize int, logger *slog.Logger) *FileIndexingService {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &FileIndexingService{
		ingester:   ingester,
		index:      index,
		extensions: normalizeExtensions(extensions),
		batchSize:  batchSize,
		log:        logger,
	}
}

// ProcessDirectories scans every directory, ingesting new or changed files in
// batches and removing documents whose files are gone.
func (s *FileIndexingService) ProcessDirectories(ctx context.Context, req models.ProcessDirectoriesRequest) models.ProcessDirectoriesResponse {
	extensions := s.extensions
	if len(req.FileExtensions) > 0 {
		extensions = normalizeExtensions(req.FileExtensions)
	}
	batchSize := s.batchSize
	if req.BatchSize > 0 {
		batchSize = req.BatchSize
	}

	resp := models.ProcessDirectoriesResponse{
		TotalDirectories: len(req.Directories),
		Results:          []models.DirectoryBatchResult{},
	}
	for _, dir := range req.Directories {
		found, processed, results := s.ScanAndIndexDirectory(ctx, dir, extensions, batchSize)
		resp.TotalDocumentsFound += found
		resp.TotalDocumentsProcessed += processed
		resp.Results = append(resp.Results, results...)
	}
	return resp
}

// ScanAndIndexDirectory syncs one directory with the index. It returns the
// number of supported files found and the number ingested.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string, extensions []string, batchSize int) (int, int, []models.DirectoryBatchResult) {
	log := s.log.With(slog.String("directory", dirPath))
	log.Info("Starting directory scan")

	indexedFiles, err := s.index.IndexedSources(ctx)
	if err != nil {
		log.Error("Could not get current index state", slog.Any("error", err))
		return 0, 0, []models.DirectoryBatchResult{{Directory: dirPath, Error: err.Error()}}
	}

	found := 0
	localFiles := make(map[string]bool)
	var pending []models.DocumentRecord
	err = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !hasExtension(path, extensions) {
			return nil
		}
		found++
		localFiles[path] = true

		hash, err := calculateFileHash(path)
		if err != nil {
			log.Warn("Could not hash file", slog.String("file", path), slog.Any("error", err))
			return nil
		}
		if indexedFiles[path] == hash {
			return nil
		}
		doc, err := s.documentFromFile(path, hash, info)
		if err != nil {
			log.Warn("Could not read file", slog.String("file", path), slog.Any("error", err))
			return nil
		}
		pending = append(pending, doc)
		return nil
	})
	if err != nil {
		log.Error("Error walking the path", slog.Any("error", err))
		return found, 0, []models.DirectoryBatchResult{{Directory: dirPath, Error: err.Error()}}
	}

	processed := 0
	var results []models.DirectoryBatchResult
	for start, batch := 0, 1; start < len(pending); start, batch = start+batchSize, batch+1 {
		end := min(start+batchSize, len(pending))
		res := s.ingester.Ingest(ctx, pending[start:end])
		results = append(results, models.DirectoryBatchResult{
			Directory: dirPath,
			Batch:     batch,
			Documents: end - start,
			Success:   res.Success,
			Error:     res.Error,
		})
		processed += res.DocumentsProcessed
	}

	prefix := filepath.Clean(dirPath) + string(filepath.Separator)
	for path := range indexedFiles {
		if strings.HasPrefix(path, prefix) && hasExtension(path, extensions) && !localFiles[path] {
			log.Info("File deleted, removing from index", slog.String("file", path))
			if err := s.index.DeleteDocument(ctx, documentIDForPath(path)); err != nil {
				log.Error("Failed to delete records", slog.String("file", path), slog.Any("error", err))
			}
		}
	}

	log.Info("Directory scan finished", slog.Int("found", found), slog.Int("processed", processed))
	return found, processed, results
}

// WatchDirectory re-indexes files as they change until ctx is cancelled.
func (s *FileIndexingService) WatchDirectory(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Error("Failed to create file watcher", slog.Any("error", err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		s.log.Error("Failed to add path to watcher", slog.String("directory", dirPath), slog.Any("error", err))
		return
	}
	s.log.Info("Watching directory", slog.String("directory", dirPath))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("Watcher error", slog.Any("error", err))
		case <-ctx.Done():
			s.log.Info("Context cancelled, shutting down watcher")
			return
		}
	}
}

func (s *FileIndexingService) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !hasExtension(event.Name, s.extensions) {
		return
	}
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		s.log.Info("File modified or created, re-indexing", slog.String("file", event.Name))
		if err := s.indexFile(ctx, event.Name); err != nil {
			s.log.Error("Failed to process file", slog.String("file", event.Name), slog.Any("error", err))
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		s.log.Info("File removed or renamed, removing from index", slog.String("file", event.Name))
		if err := s.index.DeleteDocument(ctx, documentIDForPath(event.Name)); err != nil {
			s.log.Error("Failed to delete records", slog.String("file", event.Name), slog.Any("error", err))
		}
	}
}

func (s *FileIndexingService) indexFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hash, err := calculateFileHash(path)
	if err != nil {
		return err
	}
	doc, err := s.documentFromFile(path, hash, info)
	if err != nil {
		return err
	}
	if res := s.ingester.Ingest(ctx, []models.DocumentRecord{doc}); !res.Success {
		return fmt.Errorf("ingesting %s: %s", path, res.Error)
	}
	return nil
}

func (s *FileIndexingService) documentFromFile(path, hash string, info os.FileInfo) (models.DocumentRecord, error) {
	content, err := ExtractTextFromFile(path)
	if err != nil {
		return models.DocumentRecord{}, err
	}
	doc := models.DocumentRecord{
		ID:              documentIDForPath(path),
		Content:         content,
		Source:          path,
		PublicationDate: info.ModTime().Format("2006-01-02"),
		SourceFile:      path,
		FileHash:        hash,
	}
	InferDocumentMetadata(&doc, path, content)
	return doc, nil
}

// documentIDForPath is stable across re-indexing of the same file.
func documentIDForPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return "file-" + hex.EncodeToString(sum[:])[:16]
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
