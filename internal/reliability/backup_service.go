package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricewise/pricewise/internal/database"
)

// maxRemoteBackups is how many archives are kept in the bucket; older ones
// are pruned after a successful upload.
const maxRemoteBackups = 14

// BackupMetadata describes one backup archive
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes a single database file within a backup
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupService snapshots every database with VACUUM INTO, archives the
// snapshots with checksummed metadata, and optionally replicates the archive
// plus the current model artifact to R2. With no R2 client it still produces
// local archives under dataDir/backups.
type BackupService struct {
	databases    []*database.DB
	dataDir      string
	artifactPath string // current model artifact; empty disables artifact replication
	r2           *R2Client
	log          zerolog.Logger
}

// NewBackupService creates a backup service. r2 may be nil for local-only mode.
func NewBackupService(databases []*database.DB, dataDir, artifactPath string, r2 *R2Client, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases:    databases,
		dataDir:      dataDir,
		artifactPath: artifactPath,
		r2:           r2,
		log:          log.With().Str("service", "backup").Logger(),
	}
}

// Run creates a backup archive and replicates it if R2 is configured
func (s *BackupService) Run(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	for _, db := range s.databases {
		dbPath := filepath.Join(stagingDir, db.Name()+".db")

		s.log.Debug().Str("database", db.Name()).Msg("Backing up database")

		if err := db.BackupTo(dbPath); err != nil {
			return fmt.Errorf("failed to back up %s: %w", db.Name(), err)
		}

		info, err := os.Stat(dbPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s backup: %w", db.Name(), err)
		}

		checksum, err := fileChecksum(dbPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %s backup: %w", db.Name(), err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      db.Name(),
			Filename:  db.Name() + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := fmt.Sprintf("pricewise-backup-%s.tar.gz", time.Now().Format("2006-01-02-150405"))

	backupDir := filepath.Join(s.dataDir, "backups")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	archivePath := filepath.Join(backupDir, archiveName)

	if err := createArchive(archivePath, stagingDir); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	if s.r2 != nil {
		if err := s.replicate(ctx, archivePath, archiveName); err != nil {
			return err
		}
	}

	s.log.Info().
		Dur("elapsed", time.Since(startTime)).
		Str("archive", archiveName).
		Msg("Backup complete")

	return nil
}

// replicate uploads the archive and the current model artifact, then prunes
// old remote backups.
func (s *BackupService) replicate(ctx context.Context, archivePath, archiveName string) error {
	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive for upload: %w", err)
	}
	defer archive.Close()

	if err := s.r2.Upload(ctx, "backups/"+archiveName, archive); err != nil {
		return err
	}

	if s.artifactPath != "" {
		if f, err := os.Open(s.artifactPath); err == nil {
			uploadErr := s.r2.Upload(ctx, "models/"+filepath.Base(s.artifactPath), f)
			_ = f.Close()
			if uploadErr != nil {
				// Artifact replication is best-effort; the backup itself succeeded.
				s.log.Warn().Err(uploadErr).Msg("Failed to replicate model artifact")
			}
		}
	}

	return s.pruneRemote(ctx)
}

// pruneRemote deletes the oldest remote backups beyond the retention limit
func (s *BackupService) pruneRemote(ctx context.Context) error {
	objects, err := s.r2.List(ctx, "backups/")
	if err != nil {
		return err
	}

	if len(objects) <= maxRemoteBackups {
		return nil
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.Before(objects[j].LastModified)
	})

	for _, obj := range objects[:len(objects)-maxRemoteBackups] {
		if err := s.r2.Delete(ctx, obj.Key); err != nil {
			s.log.Warn().Err(err).Str("key", obj.Key).Msg("Failed to prune old backup")
			continue
		}
		s.log.Debug().Str("key", obj.Key).Msg("Pruned old backup")
	}

	return nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// createArchive packs every regular file in srcDir into a tar.gz archive
func createArchive(archivePath, srcDir string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		path := filepath.Join(srcDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = entry.Name()

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, f); err != nil {
			_ = f.Close()
			return err
		}
		_ = f.Close()
	}

	return nil
}
