package cluster

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// checkpointMagic/checkpointVersion guard against loading a foreign or
// incompatible file as a union-find checkpoint.
const (
	checkpointMagic   uint32 = 0x55464344 // "UFCD"
	checkpointVersion uint32 = 1
)

// checkpointFileName follows <prefix>-<height>.ckpt so directory listing
// sorts naturally by height for rotation/resume.
func checkpointFileName(height int64) string {
	return fmt.Sprintf("unionfind-%020d.ckpt", height)
}

// keepCheckpoints is the retention count per spec §4.6: "older checkpoints
// are pruned, retaining the last three."
const keepCheckpoints = 3

// Manager handles atomic checkpoint persistence for a UnionFind: periodic
// serialization with write-temp-then-rename, three-file rotation, and
// resume-from-latest.
type Manager struct {
	dir string
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Save serializes u atomically (write to a temp file, then rename into
// place) and prunes all but the newest keepCheckpoints files. On crash, at
// most one checkpoint interval of work is redone (spec §4.6).
func (m *Manager) Save(u *UnionFind, height int64) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("cluster: checkpoint: mkdir: %w", err)
	}

	finalPath := filepath.Join(m.dir, checkpointFileName(height))
	// Suffixed with a random ID, not just ".tmp": Save can be called back to
	// back by the orchestrator and a stale crash-leftover temp file must
	// never collide with the one currently being written.
	tmpPath := finalPath + "." + uuid.New().String() + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("cluster: checkpoint: create temp: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := serialize(w, u); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cluster: checkpoint: serialize: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cluster: checkpoint: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cluster: checkpoint: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cluster: checkpoint: close: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cluster: checkpoint: rename: %w", err)
	}

	return m.prune()
}

// prune keeps only the newest keepCheckpoints files in the directory.
func (m *Manager) prune() error {
	heights, err := m.listHeights()
	if err != nil {
		return err
	}
	if len(heights) <= keepCheckpoints {
		return nil
	}
	for _, h := range heights[:len(heights)-keepCheckpoints] {
		_ = os.Remove(filepath.Join(m.dir, checkpointFileName(h)))
	}
	return nil
}

func (m *Manager) listHeights() ([]int64, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cluster: checkpoint: list dir: %w", err)
	}
	var heights []int64
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "unionfind-") || !strings.HasSuffix(name, ".ckpt") {
			continue
		}
		trimmed := strings.TrimSuffix(strings.TrimPrefix(name, "unionfind-"), ".ckpt")
		h, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			continue
		}
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights, nil
}

// LatestHeight returns the height of the newest checkpoint on disk, or
// (-1, false) if none exists.
func (m *Manager) LatestHeight() (int64, bool, error) {
	heights, err := m.listHeights()
	if err != nil {
		return 0, false, err
	}
	if len(heights) == 0 {
		return -1, false, nil
	}
	return heights[len(heights)-1], true, nil
}

// Load reads the newest checkpoint on disk and returns the reconstructed
// UnionFind plus its checkpoint height.
func (m *Manager) Load() (*UnionFind, int64, error) {
	height, ok, err := m.LatestHeight()
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return New(), -1, nil
	}
	f, err := os.Open(filepath.Join(m.dir, checkpointFileName(height)))
	if err != nil {
		return nil, 0, fmt.Errorf("cluster: checkpoint: open: %w", err)
	}
	defer f.Close()

	u, err := deserialize(bufio.NewReader(f))
	if err != nil {
		return nil, 0, fmt.Errorf("cluster: checkpoint: deserialize: %w", err)
	}
	return u, height, nil
}

// --- binary format: magic, version, count, [len-prefixed address]*count, [parent int32]*count, [rank byte]*count ---

func serialize(w *bufio.Writer, u *UnionFind) error {
	if err := binary.Write(w, binary.LittleEndian, checkpointMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, checkpointVersion); err != nil {
		return err
	}
	count := uint32(len(u.idToAddr))
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return err
	}
	for _, addr := range u.idToAddr {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(addr))); err != nil {
			return err
		}
		if _, err := w.WriteString(addr); err != nil {
			return err
		}
	}
	for _, p := range u.parent {
		if err := binary.Write(w, binary.LittleEndian, p); err != nil {
			return err
		}
	}
	for _, r := range u.rank {
		if err := w.WriteByte(r); err != nil {
			return err
		}
	}
	return nil
}

func deserialize(r *bufio.Reader) (*UnionFind, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != checkpointMagic {
		return nil, fmt.Errorf("bad magic %x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != checkpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}

	u := &UnionFind{
		addrToID: make(map[string]int32, count),
		idToAddr: make([]string, count),
		parent:   make([]int32, count),
		rank:     make([]uint8, count),
	}

	for i := uint32(0); i < count; i++ {
		var strLen uint32
		if err := binary.Read(r, binary.LittleEndian, &strLen); err != nil {
			return nil, fmt.Errorf("read address length: %w", err)
		}
		buf := make([]byte, strLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read address: %w", err)
		}
		addr := string(buf)
		u.idToAddr[i] = addr
		u.addrToID[addr] = int32(i)
	}
	for i := uint32(0); i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, &u.parent[i]); err != nil {
			return nil, fmt.Errorf("read parent: %w", err)
		}
	}
	for i := uint32(0); i < count; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read rank: %w", err)
		}
		u.rank[i] = b
	}

	return u, nil
}
