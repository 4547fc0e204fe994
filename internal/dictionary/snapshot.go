package dictionary

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"
)

// MagicBytes identifies a compiled .adx dictionary snapshot ("ANGX").
const (
	MagicBytes    uint32 = 0x414E4758
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 16
)

var (
	ErrBadMagic    = errors.New("not a dictionary snapshot")
	ErrBadVersion  = errors.New("unsupported snapshot version")
	ErrBadChecksum = errors.New("snapshot checksum mismatch")
)

// SnapshotHeader is the fixed-size header at the start of every snapshot.
type SnapshotHeader struct {
	Magic        uint32
	Version      uint32
	EntryCount   uint32
	AlphabetSize uint32
	CreatedAt    int64
	BlockOffset  int64
	BlockSize    int64
}

type snapshotWord struct {
	Word      string `json:"w"`
	Canonical string `json:"c"`
}

// WriteSnapshot compiles idx into path. The file is written next to its
// destination and renamed into place once synced.
func WriteSnapshot(path string, idx *Index) error {
	if idx == nil || idx.Len() == 0 {
		return fmt.Errorf("cannot write empty snapshot")
	}
	words := make([]snapshotWord, 0, idx.Len())
	for _, e := range idx.Entries() {
		words = append(words, snapshotWord{Word: e.Word, Canonical: e.Canonical})
	}
	block, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("marshaling word block: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()
	defer os.Remove(tmpPath)

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(idx.Len()))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(idx.order)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(time.Now().Unix()))
	binary.LittleEndian.PutUint64(header[24:32], uint64(HeaderSize))
	binary.LittleEndian.PutUint64(header[32:40], uint64(len(block)))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(block); err != nil {
		return fmt.Errorf("writing word block: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(block))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(idx.Len()))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(len(block)))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

// ReadSnapshot verifies and loads a compiled snapshot.
func ReadSnapshot(path string) (*Index, SnapshotHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, SnapshotHeader{}, fmt.Errorf("reading snapshot: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, SnapshotHeader{}, fmt.Errorf("%w: file too short (%d bytes)", ErrBadMagic, len(data))
	}
	header := SnapshotHeader{
		Magic:        binary.LittleEndian.Uint32(data[0:4]),
		Version:      binary.LittleEndian.Uint32(data[4:8]),
		EntryCount:   binary.LittleEndian.Uint32(data[8:12]),
		AlphabetSize: binary.LittleEndian.Uint32(data[12:16]),
		CreatedAt:    int64(binary.LittleEndian.Uint64(data[16:24])),
		BlockOffset:  int64(binary.LittleEndian.Uint64(data[24:32])),
		BlockSize:    int64(binary.LittleEndian.Uint64(data[32:40])),
	}
	if header.Magic != MagicBytes {
		return nil, header, fmt.Errorf("%w: bad magic bytes %x", ErrBadMagic, header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, header, fmt.Errorf("%w: %d", ErrBadVersion, header.Version)
	}
	end := header.BlockOffset + header.BlockSize
	if header.BlockOffset < int64(HeaderSize) || header.BlockSize < 0 || end+int64(FooterSize) != int64(len(data)) {
		return nil, header, fmt.Errorf("%w: block bounds %d+%d do not match file size %d",
			ErrBadChecksum, header.BlockOffset, header.BlockSize, len(data))
	}
	block := data[header.BlockOffset:end]
	footer := data[end:]
	if want := binary.LittleEndian.Uint32(footer[0:4]); crc32.ChecksumIEEE(block) != want {
		return nil, header, ErrBadChecksum
	}

	var words []snapshotWord
	if err := json.Unmarshal(block, &words); err != nil {
		return nil, header, fmt.Errorf("parsing word block: %w", err)
	}
	if len(words) != int(header.EntryCount) {
		return nil, header, fmt.Errorf("%w: header lists %d words, block holds %d",
			ErrBadChecksum, header.EntryCount, len(words))
	}
	forms := make([]wordForm, len(words))
	for i, w := range words {
		forms[i] = wordForm{word: w.Word, canonical: w.Canonical}
	}
	idx, err := newIndex(forms)
	if err != nil {
		return nil, header, err
	}
	return idx, header, nil
}
