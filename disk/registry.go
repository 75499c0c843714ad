package disk

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"heron-db/page"
	"heron-db/utils/checksums"
)

var (
	ErrDuplicateFileEntry = fmt.Errorf("file name already registered")
	ErrUnknownFileEntry   = fmt.Errorf("file name not registered")
	ErrRegistryFull       = fmt.Errorf("registry does not fit on its page")
)

// registry is the named heap file library: file name -> head directory page.
// It is persisted as one msgpack blob on a dedicated crc protected page.
type registry struct {
	entries map[string]page.PageID
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]page.PageID)}
}

const registryHeaderSize = 8 // crc (4byte) | blob length (4byte)

func (r *registry) serialize() ([]byte, error) {
	blob, err := msgpack.Marshal(r.entries)
	if err != nil {
		return nil, err
	}
	if len(blob) > int(page.PAGE_SIZE)-registryHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrRegistryFull, len(blob))
	}
	buffer := make([]byte, page.PAGE_SIZE)
	binary.BigEndian.PutUint32(buffer[4:8], uint32(len(blob)))
	copy(buffer[registryHeaderSize:], blob)
	checksums.CalculateCRC(buffer[0:4], buffer[4:])
	return buffer, nil
}

func (r *registry) deserialize(buffer []byte) error {
	if !checksums.VerifyCRC(buffer[0:4], buffer[4:]) {
		return fmt.Errorf("%w: registry page", ErrCorruptMeta)
	}
	length := binary.BigEndian.Uint32(buffer[4:8])
	r.entries = make(map[string]page.PageID)
	if length == 0 {
		return nil
	}
	return msgpack.Unmarshal(buffer[registryHeaderSize:registryHeaderSize+length], &r.entries)
}

func (m *Manager) flushRegistry() error {
	buffer, err := m.registry.serialize()
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to serialize file registry")
		return err
	}
	if _, err := m.file.WriteAt(buffer, int64(m.registryPageID())*int64(page.PAGE_SIZE)); err != nil {
		m.logger.Error().Err(err).Msg("failed to write file registry page")
		return err
	}
	return nil
}

func (m *Manager) loadRegistry() error {
	buffer := make([]byte, page.PAGE_SIZE)
	if _, err := m.file.ReadAt(buffer, int64(m.registryPageID())*int64(page.PAGE_SIZE)); err != nil {
		m.logger.Error().Err(err).Msg("failed to read file registry page")
		return err
	}
	return m.registry.deserialize(buffer)
}

// GetFileEntry looks up the head page registered under name.
func (m *Manager) GetFileEntry(name string) (page.PageID, bool) {
	pid, ok := m.registry.entries[name]
	return pid, ok
}

// AddFileEntry registers name -> headID. Names are unique.
func (m *Manager) AddFileEntry(name string, headID page.PageID) error {
	if _, ok := m.registry.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFileEntry, name)
	}
	m.registry.entries[name] = headID
	if err := m.flushRegistry(); err != nil {
		delete(m.registry.entries, name)
		return err
	}
	m.logger.Debug().Msgf("registered file %q -> page %d", name, headID)
	return nil
}

// DeleteFileEntry drops the registration for name.
func (m *Manager) DeleteFileEntry(name string) error {
	pid, ok := m.registry.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFileEntry, name)
	}
	delete(m.registry.entries, name)
	if err := m.flushRegistry(); err != nil {
		m.registry.entries[name] = pid
		return err
	}
	m.logger.Debug().Msgf("unregistered file %q", name)
	return nil
}
