package services

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const coverImagesDir = "data/cover_images"

// CoverCacheService mirrors story cover images to local disk so the site
// does not hotlink third-party hosts on every page view
type CoverCacheService struct {
	httpClient *http.Client
	baseDir    string
}

// NewCoverCacheService creates a new cover cache service
func NewCoverCacheService() *CoverCacheService {
	svc := &CoverCacheService{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseDir: coverImagesDir,
	}

	if err := svc.ensureDir(); err != nil {
		log.Printf("Warning: Could not create cover images directory: %v", err)
	}

	return svc
}

func (s *CoverCacheService) ensureDir() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// GetCoverPath returns the local file path for a story's cached cover
func (s *CoverCacheService) GetCoverPath(storyID string) string {
	return filepath.Join(s.baseDir, storyID+".jpg")
}

// HasCover checks if a cover is already cached locally
func (s *CoverCacheService) HasCover(storyID string) bool {
	_, err := os.Stat(s.GetCoverPath(storyID))
	return err == nil
}

// GetLocalCoverURL returns the URL path the frontend uses for the cached
// cover
func (s *CoverCacheService) GetLocalCoverURL(storyID string) string {
	return fmt.Sprintf("/covers/%s.jpg", storyID)
}

// CacheCover downloads the story's cover image and stores it locally.
// Returns true if the cover ends up cached.
func (s *CoverCacheService) CacheCover(storyID, sourceURL string) bool {
	if sourceURL == "" {
		return false
	}
	if s.HasCover(storyID) {
		return true
	}

	if err := s.ensureDir(); err != nil {
		log.Printf("Failed to create cover cache directory: %v", err)
		return false
	}

	resp, err := s.httpClient.Get(sourceURL)
	if err != nil {
		log.Printf("Failed to download cover for story %s: %v", storyID, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Failed to download cover for story %s: HTTP %d", storyID, resp.StatusCode)
		return false
	}

	localPath := s.GetCoverPath(storyID)
	file, err := os.Create(localPath)
	if err != nil {
		log.Printf("Failed to create cover file for story %s: %v", storyID, err)
		return false
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		log.Printf("Failed to save cover for story %s: %v", storyID, err)
		// Clean up partial file
		os.Remove(localPath)
		return false
	}

	log.Printf("Cached cover for story %s", storyID)
	return true
}

// CacheCoverAsync downloads the cover in the background
func (s *CoverCacheService) CacheCoverAsync(storyID, sourceURL string) {
	go func() {
		s.CacheCover(storyID, sourceURL)
	}()
}

// Invalidate drops a cached cover, e.g. after the story's cover URL
// changed
func (s *CoverCacheService) Invalidate(storyID string) {
	if err := os.Remove(s.GetCoverPath(storyID)); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove cached cover for story %s: %v", storyID, err)
	}
}

// GetBaseDir returns the base directory for cached covers
func (s *CoverCacheService) GetBaseDir() string {
	return s.baseDir
}
