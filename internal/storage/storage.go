package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"
)

// Storage caches downloaded azan audio and hands back a URL the media
// pipeline can stream from.
type Storage interface {
	Save(name string, r io.Reader) (string, error)
}

type LocalStorage struct {
	cacheDir string
	baseURL  string
}

type SpacesStorage struct {
	client   *s3.S3
	bucket   string
	cdnURL   string
	endpoint string
}

func NewLocalStorage(cacheDir, baseURL string) *LocalStorage {
	return &LocalStorage{cacheDir: cacheDir, baseURL: baseURL}
}

func NewSpacesStorage(endpoint, region, bucket, cdnURL, accessKey, secretKey string) (*SpacesStorage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SpacesStorage{
		client:   s3.New(sess),
		bucket:   bucket,
		cdnURL:   cdnURL,
		endpoint: endpoint,
	}, nil
}

// normalizeFilename strips problematic characters so a cached blob maps to a
// stable, URL-safe key. The same audio name always resolves to the same key.
func normalizeFilename(name string) string {
	ext := filepath.Ext(name)
	baseName := strings.TrimSuffix(name, ext)

	baseName = strings.ReplaceAll(baseName, " ", "_")

	reg := regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	baseName = reg.ReplaceAllString(baseName, "")

	if baseName == "" {
		baseName = "audio"
	}

	return baseName + ext
}

func (ls *LocalStorage) Save(name string, r io.Reader) (string, error) {
	normalized := normalizeFilename(name)
	cachePath := filepath.Join(ls.cacheDir, normalized)

	if err := os.MkdirAll(ls.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	dst, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func(dst *os.File) {
		err := dst.Close()
		if err != nil {
			return
		}
	}(dst)

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to cache audio: %w", err)
	}

	if ls.baseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(ls.baseURL, "/"), normalized), nil
	}
	return cachePath, nil
}

func (ss *SpacesStorage) Save(name string, r io.Reader) (string, error) {
	normalized := normalizeFilename(name)
	key := fmt.Sprintf("audio/%s", normalized)

	// PutObject needs a seekable body
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	_, err = ss.client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(getContentType(normalized)),
		ACL:         aws.String("public-read"),
	})

	if err != nil {
		log.Error().Err(err).Msg("Failed to upload audio to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}

	cdnURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(ss.cdnURL, "/"), key)
	return cdnURL, nil
}

func getContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
