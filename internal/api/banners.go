package api

import (
	"fmt"
	"os"
	"path/filepath"
)

var bannerExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// storeBannerFile writes a validated banner upload under <DATA_DIR>/banners
// and returns the path recorded on the Server row.
func (s *Server) storeBannerFile(serverID string, data []byte, contentType string) (string, error) {
	dir := filepath.Join(s.dataDir(), "banners")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create banner directory: %w", err)
	}

	ext := bannerExt[contentType]
	path := filepath.Join(dir, serverID+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write banner file: %w", err)
	}
	return path, nil
}

func (s *Server) dataDir() string {
	if s.dataDirPath != "" {
		return s.dataDirPath
	}
	return "/data"
}

func (s *Server) backupFilePath(serverID, filename string) string {
	root := s.backupRoot
	if root == "" {
		root = "/backups"
	}
	return filepath.Join(root, serverID, filename)
}
