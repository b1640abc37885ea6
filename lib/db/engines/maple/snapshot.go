package maple

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/zeebo/blake3"
	"os"
	"path/filepath"
	"sort"
)

// --------------------------------------------------------------------------
// Snapshot Format
// --------------------------------------------------------------------------
//
//	magic    [8]byte  "MAPLEKV\x00"
//	version  uint8
//	count    uint64
//	count x  keyLen uint32 | key | valueLen uint32 | value
//	checksum [32]byte blake3 of everything before it
//
// All integers are little endian. An empty file is an empty database.

const (
	snapshotMagic   = "MAPLEKV\x00"
	snapshotVersion = 4
	checksumSize    = 32
	headerSize      = len(snapshotMagic) + 1 + 8
)

var errCorrupt = errors.New("corrupt snapshot")

// encodeSnapshot serializes the committed entries of the handle.
// The caller must hold the handle lock.
func (h *handle) encodeSnapshot() []byte {
	keys := make([]string, 0)
	for _, shard := range h.shards {
		shard.Data.Range(func(key string, _ []byte) bool {
			keys = append(keys, key)
			return true
		})
	}
	sort.Strings(keys)

	buf := make([]byte, 0, headerSize+int(h.size)+8*len(keys)+checksumSize)
	buf = append(buf, snapshotMagic...)
	buf = append(buf, snapshotVersion)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(keys)))
	for _, key := range keys {
		value, _ := h.shard(key).Data.Load(key)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(key)))
		buf = append(buf, key...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(value)))
		buf = append(buf, value...)
	}
	sum := blake3.Sum256(buf)
	return append(buf, sum[:]...)
}

// decodeSnapshot calls fn for every entry of data. The values passed to fn
// alias data.
func decodeSnapshot(data []byte, fn func(key string, value []byte)) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) < headerSize+checksumSize {
		return fmt.Errorf("%w: truncated header (%d bytes)", errCorrupt, len(data))
	}
	if !bytes.Equal(data[:len(snapshotMagic)], []byte(snapshotMagic)) {
		return fmt.Errorf("%w: magic number mismatch", errCorrupt)
	}
	if v := data[len(snapshotMagic)]; v != snapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", errCorrupt, v)
	}

	body := data[:len(data)-checksumSize]
	sum := blake3.Sum256(body)
	if !bytes.Equal(sum[:], data[len(body):]) {
		return fmt.Errorf("%w: checksum mismatch", errCorrupt)
	}

	count := binary.LittleEndian.Uint64(body[len(snapshotMagic)+1:])
	rest := body[headerSize:]

	next := func() ([]byte, bool) {
		if len(rest) < 4 {
			return nil, false
		}
		n := binary.LittleEndian.Uint32(rest)
		if uint64(len(rest)-4) < uint64(n) {
			return nil, false
		}
		field := rest[4 : 4+n]
		rest = rest[4+n:]
		return field, true
	}

	for i := uint64(0); i < count; i++ {
		key, ok := next()
		if !ok {
			return fmt.Errorf("%w: truncated key of entry %d", errCorrupt, i)
		}
		value, ok := next()
		if !ok {
			return fmt.Errorf("%w: truncated value of entry %d", errCorrupt, i)
		}
		fn(string(key), value)
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", errCorrupt, len(rest))
	}
	return nil
}

// load fills the shards of a handle that is not yet published
func (h *handle) load(data []byte) error {
	var size int64
	err := decodeSnapshot(data, func(key string, value []byte) {
		h.shard(key).Data.Store(key, value)
		size += int64(len(key) + len(value))
	})
	if err != nil {
		return err
	}
	h.size = size
	return nil
}

// persist atomically replaces the database file with a snapshot of the
// committed entries. The caller must hold the handle lock.
func (h *handle) persist() error {
	return writeFileAtomic(h.path, h.encodeSnapshot(), filePermissions)
}

// writeFileAtomic writes data to a temporary file next to path and renames it
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
