package store

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/opencontainers/go-digest"
)

var allowedAlgorithms = map[string]int{
	"sha256": 64,
	"sha512": 128,
}

func isSafeHex(hexLength int, s string) bool {
	if len(s) != hexLength {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// validateHash ensures the hash components are safe for filesystem paths
func validateHash(hash v1.Hash) error {
	hexLength, ok := allowedAlgorithms[hash.Algorithm]
	if !ok {
		return fmt.Errorf("invalid hash algorithm: %q not in allowlist", hash.Algorithm)
	}
	if !isSafeHex(hexLength, hash.Hex) {
		return fmt.Errorf("invalid hash hex: contains non-hexadecimal characters or invalid length")
	}
	return nil
}

// ToDigest converts a go-containerregistry hash into an OCI digest.
func ToDigest(hash v1.Hash) digest.Digest {
	return digest.NewDigestFromEncoded(digest.Algorithm(hash.Algorithm), hash.Hex)
}

// FromDigest converts an OCI digest into a go-containerregistry hash.
func FromDigest(d digest.Digest) (v1.Hash, error) {
	if err := d.Validate(); err != nil {
		return v1.Hash{}, fmt.Errorf("invalid digest %q: %w", d, err)
	}
	return v1.Hash{Algorithm: d.Algorithm().String(), Hex: d.Encoded()}, nil
}

// blobPath returns the path to the blob for the given hash.
func (s *LocalStore) blobPath(hash v1.Hash) (string, error) {
	if err := validateHash(hash); err != nil {
		return "", fmt.Errorf("unsafe hash: %w", err)
	}

	path := filepath.Join(s.rootPath, blobsDir, hash.Algorithm, hash.Hex)

	cleanRootPath := filepath.Clean(s.rootPath)
	cleanPath := filepath.Clean(path)
	relPath, err := filepath.Rel(cleanRootPath, cleanPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("path traversal attempt detected: %s", path)
	}

	return cleanPath, nil
}

// BlobPath returns the on-disk path of a complete blob.
func (s *LocalStore) BlobPath(hash v1.Hash) (string, error) {
	ok, err := s.HasBlob(hash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBlobNotFound, hash)
	}
	return s.blobPath(hash)
}

// HasBlob reports whether a complete blob is present.
func (s *LocalStore) HasBlob(hash v1.Hash) (bool, error) {
	path, err := s.blobPath(hash)
	if err != nil {
		return false, fmt.Errorf("get blob path: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}
	return false, nil
}

// IncompleteSize returns how many bytes of hash an interrupted download left
// behind, so callers can request only the remainder.
func (s *LocalStore) IncompleteSize(hash v1.Hash) int64 {
	path, err := s.blobPath(hash)
	if err != nil {
		return 0
	}
	info, err := os.Stat(incompletePath(path))
	if err != nil {
		return 0
	}
	return info.Size()
}

// WriteBlob writes the blob to the store and verifies it hashes to diffID.
// If the blob is already present it is a no-op and r is not consumed.
// If an incomplete file exists from an interrupted download, r is still
// expected to deliver the full content: the bytes on disk are hashed in place
// of the first bytes of r, which are skipped. Content that does not hash to
// diffID, including a corrupt partial file, is discarded.
func (s *LocalStore) WriteBlob(diffID v1.Hash, r io.Reader) error {
	hasBlob, err := s.HasBlob(diffID)
	if err != nil {
		return fmt.Errorf("check blob existence: %w", err)
	}
	if hasBlob {
		return nil
	}

	path, err := s.blobPath(diffID)
	if err != nil {
		return fmt.Errorf("get blob path: %w", err)
	}
	incomplete := incompletePath(path)
	verifier := ToDigest(diffID).Verifier()

	f, bytesToSkip, err := openIncomplete(incomplete, verifier)
	if err != nil {
		return err
	}
	defer f.Close()

	if bytesToSkip > 0 {
		discarded, err := io.CopyN(io.Discard, r, bytesToSkip)
		if err != nil || discarded != bytesToSkip {
			// The reader is shorter than what is on disk: start over.
			f.Close()
			os.Remove(incomplete)
			return fmt.Errorf("resume %s: expected %d bytes already written, reader had %d: %w", diffID, bytesToSkip, discarded, ErrDigestMismatch)
		}
	}

	if _, err := io.Copy(io.MultiWriter(f, verifier), r); err != nil {
		return fmt.Errorf("copy blob %q to store: %w", diffID.String(), err)
	}

	if !verifier.Verified() {
		f.Close()
		os.Remove(incomplete)
		return fmt.Errorf("%w: content does not match %s", ErrDigestMismatch, diffID)
	}

	f.Close() // Rename will fail on Windows if the file is still open.
	if err := os.Rename(incomplete, path); err != nil {
		return fmt.Errorf("rename blob file: %w", err)
	}
	return nil
}

// openIncomplete opens the partial file for appending after feeding its
// current content to verifier, or creates it when there is nothing to
// resume. It returns how many bytes were already on disk.
func openIncomplete(incomplete string, verifier io.Writer) (*os.File, int64, error) {
	info, err := os.Stat(incomplete)
	if err != nil || info.Size() == 0 {
		f, err := createFile(incomplete)
		if err != nil {
			return nil, 0, fmt.Errorf("create blob file: %w", err)
		}
		return f, 0, nil
	}

	f, err := os.OpenFile(incomplete, os.O_RDWR|os.O_APPEND, 0o666)
	if err != nil {
		return nil, 0, fmt.Errorf("open incomplete blob file: %w", err)
	}
	n, err := io.Copy(verifier, f)
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("hash incomplete blob file: %w", err)
	}
	return f, n, nil
}

// Ingest stores content whose digest is not known in advance and returns its
// sha256 hash and size.
func (s *LocalStore) Ingest(r io.Reader) (v1.Hash, int64, error) {
	f, err := os.CreateTemp(filepath.Join(s.rootPath, ingestDir), "blob-*")
	if err != nil {
		return v1.Hash{}, 0, fmt.Errorf("create ingest file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)
	defer f.Close()

	digester := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(f, digester.Hash()), r)
	if err != nil {
		return v1.Hash{}, 0, fmt.Errorf("copy ingest blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return v1.Hash{}, 0, fmt.Errorf("close ingest blob: %w", err)
	}

	hash, err := FromDigest(digester.Digest())
	if err != nil {
		return v1.Hash{}, 0, err
	}
	path, err := s.blobPath(hash)
	if err != nil {
		return v1.Hash{}, 0, fmt.Errorf("get blob path: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return hash, n, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return v1.Hash{}, 0, fmt.Errorf("create parent directory %q: %w", filepath.Dir(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return v1.Hash{}, 0, fmt.Errorf("rename ingest blob: %w", err)
	}
	return hash, n, nil
}

// RemoveBlob removes the blob with the given hash from the store.
func (s *LocalStore) RemoveBlob(hash v1.Hash) error {
	path, err := s.blobPath(hash)
	if err != nil {
		return fmt.Errorf("get blob path: %w", err)
	}
	return os.Remove(path)
}

// createFile is a wrapper around os.Create that creates any parent directories as needed.
func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, fmt.Errorf("create parent directory %q: %w", filepath.Dir(path), err)
	}
	return os.Create(path)
}

// incompletePath returns the path to the incomplete file for the given path.
func incompletePath(path string) string {
	return path + ".incomplete"
}
