package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
)

var (
	s3Session *session.Session
	uploader  *s3manager.Uploader
	useS3     bool
	baseURL   string
	uploadDir string
)

// InitStorage initializes either S3 or local storage based on configuration
func InitStorage() error {
	awsRegion := os.Getenv("AWS_REGION")
	awsAccessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	awsSecretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if awsRegion != "" && awsAccessKey != "" && awsSecretKey != "" {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(awsRegion),
			Credentials: credentials.NewStaticCredentials(
				awsAccessKey,
				awsSecretKey,
				"", // Token (optional)
			),
		})
		if err != nil {
			return fmt.Errorf("failed to create AWS session: %v", err)
		}

		s3Session = sess
		uploader = s3manager.NewUploader(sess)
		useS3 = true

		fmt.Println("✅ AWS S3 storage initialized successfully")
		return nil
	}

	// Fallback to local storage
	useS3 = false
	uploadDir = "/app/uploads"
	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	if err := os.MkdirAll(filepath.Join(uploadDir, "delivery-status"), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %v", err)
	}

	fmt.Println("⚠️  AWS S3 not configured. Using local file storage (not recommended for production)")
	return nil
}

// ImageStore adapts the package storage to the uploader interface the
// status transition engine consumes.
type ImageStore struct{}

func (ImageStore) UploadBase64(ctx context.Context, data, folder string) (string, error) {
	return UploadBase64Image(ctx, data, folder)
}

// UploadBase64Image decodes a base64 payload (with or without a data-URL
// prefix) and stores it as a JPEG, returning the public URL.
func UploadBase64Image(ctx context.Context, data, folder string) (string, error) {
	if data == "" {
		return "", fmt.Errorf("empty image payload")
	}

	// Strip a data:image/...;base64, prefix if the client sent one
	if idx := strings.Index(data, ","); idx != -1 {
		data = data[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("invalid base64 image: %v", err)
	}

	fileName := fmt.Sprintf("%s/%s.jpg", folder, uuid.NewString())

	if useS3 {
		return uploadBytesToS3(ctx, raw, fileName)
	}
	return uploadBytesLocally(raw, fileName)
}

// uploadBytesToS3 uploads raw image bytes to AWS S3
func uploadBytesToS3(ctx context.Context, raw []byte, fileName string) (string, error) {
	bucketName := os.Getenv("AWS_S3_BUCKET")
	if bucketName == "" {
		return "", fmt.Errorf("S3 bucket name not configured")
	}

	contentType := http.DetectContentType(raw)

	_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String(contentType),
		// ACL removed - bucket uses bucket policy for public access instead
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	awsRegion := os.Getenv("AWS_REGION")
	publicURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucketName, awsRegion, fileName)

	return publicURL, nil
}

// uploadBytesLocally writes raw image bytes to local storage
func uploadBytesLocally(raw []byte, fileName string) (string, error) {
	filePath := filepath.Join(uploadDir, fileName)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create folder directory: %v", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}

	return fmt.Sprintf("%s/uploads/%s", baseURL, filepath.ToSlash(fileName)), nil
}

// GetImageURL returns the full URL for an image
// For S3: returns the URL as-is
// For local: prepends the base URL
func GetImageURL(imagePath string) string {
	if useS3 || strings.HasPrefix(imagePath, "http") {
		return imagePath
	}

	imagePath = filepath.ToSlash(imagePath)
	return fmt.Sprintf("%s/uploads/%s", baseURL, imagePath)
}

// IsUsingS3 returns true if S3 storage is being used
func IsUsingS3() bool {
	return useS3
}
