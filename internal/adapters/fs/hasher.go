package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// DefaultMemoSize bounds the number of file hashes kept in memory.
const DefaultMemoSize = 8192

type fileKey struct {
	path  string
	size  int64
	mtime int64
}

// Hasher provides content hashing for tasks and files. File hashes are
// memoized by (path, size, mtime), so a file that is touched or rewritten is
// hashed again.
type Hasher struct {
	walker *Walker
	memo   *lru.Cache[fileKey, uint64]
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	memo, err := lru.New[fileKey, uint64](DefaultMemoSize)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Hasher{walker: walker, memo: memo}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}
	key := fileKey{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}
	if sum, ok := h.memo.Get(key); ok {
		return sum, nil
	}

	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	sum := hasher.Sum64()
	h.memo.Add(key, sum)
	return sum, nil
}

// HashPath hashes a file, or a directory tree by relative path and content.
func (h *Hasher) HashPath(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}
	if !info.IsDir() {
		return h.ComputeFileHash(path)
	}

	hasher := xxhash.New()
	for file := range h.walker.WalkFiles(path, nil) {
		rel, err := filepath.Rel(path, file)
		if err != nil {
			return 0, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", file)
		}
		if err := h.hashFile(rel, file, hasher); err != nil {
			return 0, err
		}
	}
	return hasher.Sum64(), nil
}

// FilesEqual reports whether two files or two directory trees have identical content.
func (h *Hasher) FilesEqual(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", a)
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", b)
	}
	if ia.IsDir() != ib.IsDir() {
		return false, nil
	}
	if !ia.IsDir() && ia.Size() != ib.Size() {
		return false, nil
	}

	ha, err := h.HashPath(a)
	if err != nil {
		return false, err
	}
	hb, err := h.HashPath(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

// ComputeInputHash computes a single hash representing the task definition
// and the content of its inputs and extra dependencies.
func (h *Hasher) ComputeInputHash(task *domain.Task) (string, error) {
	hasher := xxhash.New()

	h.hashTaskDefinition(task, hasher)

	for _, input := range task.Sources() {
		if err := h.hashInputPath(input, hasher); err != nil {
			return "", zerr.Wrap(err, domain.ErrInputHashComputationFailed.Error())
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

// hashTaskDefinition hashes everything about the task that affects its outputs
// apart from input content.
func (h *Hasher) hashTaskDefinition(task *domain.Task, hasher *xxhash.Digest) {
	writeField := func(s string) {
		_, _ = hasher.WriteString(s)
		_, _ = hasher.Write([]byte{0})
	}
	endSection := func() { _, _ = hasher.Write([]byte{0}) }

	writeField(task.Name.String())
	writeField(task.Kind.String())
	writeField(task.ABI.String())

	for _, arg := range task.Command {
		writeField(arg)
	}
	endSection()

	for _, input := range task.Inputs {
		writeField(input.String())
	}
	endSection()

	for _, output := range task.Outputs {
		writeField(output.String())
	}
	endSection()

	for _, dep := range task.ExtraDependencies {
		writeField(dep.String())
	}
	endSection()
}

func (h *Hasher) hashInputPath(path string, hasher io.Writer) error {
	info, err := os.Stat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}

	if !info.IsDir() {
		return h.hashFile(path, path, hasher)
	}
	for filePath := range h.walker.WalkFiles(path, nil) {
		if err := h.hashFile(filePath, filePath, hasher); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hasher) hashFile(label, path string, mainHasher io.Writer) error {
	_, _ = mainHasher.Write([]byte(label))
	_, _ = mainHasher.Write([]byte{0})

	hash, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}

	if err := binary.Write(mainHasher, binary.LittleEndian, hash); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}

// ComputeOutputHash computes the hash of the output files. A missing output
// is an error wrapping fs.ErrNotExist.
func (h *Hasher) ComputeOutputHash(outputs []string) (string, error) {
	sortedOutputs := slices.Clone(outputs)
	slices.Sort(sortedOutputs)

	hasher := xxhash.New()

	for _, output := range sortedOutputs {
		if _, err := os.Stat(output); err != nil {
			if os.IsNotExist(err) {
				return "", zerr.With(zerr.Wrap(iofs.ErrNotExist, "output file missing"), "path", output)
			}
			return "", zerr.With(zerr.Wrap(err, "failed to stat output file"), "path", output)
		}

		hash, err := h.HashPath(output)
		if err != nil {
			return "", err
		}

		if err := binary.Write(hasher, binary.LittleEndian, hash); err != nil {
			return "", zerr.Wrap(err, "failed to write hash to digest")
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}
