package beet

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type dynamicMap[K comparable, V any] struct {
	key   Codec[K]
	value Codec[V]
	name  string
}

// Map encodes a u32 entry count followed by key/value pairs. Entries are
// written in map iteration order, so equal maps may encode differently.
func Map[K comparable, V any](key Codec[K], value Codec[V]) FixableCodec[map[K]V] {
	return &dynamicMap[K, V]{
		key:   key,
		value: value,
		name:  fmt.Sprintf("Map<%s, %s>", key.Description(), value.Description()),
	}
}

func (m *dynamicMap[K, V]) Kind() Kind          { return KindFixable }
func (*dynamicMap[K, V]) encodes(map[K]V)       {}
func (m *dynamicMap[K, V]) Description() string { return m.name }

func (m *dynamicMap[K, V]) resolved(count int) *fixedMap[K, V] {
	fixed := &fixedMap[K, V]{
		keySource:   m.key,
		valueSource: m.value,
		count:       count,
		size:        lengthPrefix,
		name:        fmt.Sprintf("%s(%d)", m.name, count),
	}
	if f, ok := m.key.(FixedCodec[K]); ok && m.key.Kind() == KindFixed {
		fixed.key = f
	}
	if f, ok := m.value.(FixedCodec[V]); ok && m.value.Kind() == KindFixed {
		fixed.value = f
	}
	if fixed.key != nil && fixed.value != nil {
		fixed.size += count * (fixed.key.ByteSize() + fixed.value.ByteSize())
	} else {
		fixed.table = make(map[K]mapEntry[K, V], count)
	}
	return fixed
}

func (m *dynamicMap[K, V]) FromValue(value map[K]V) (FixedCodec[map[K]V], error) {
	fixed := m.resolved(len(value))
	if fixed.table == nil {
		return fixed, nil
	}
	for k, v := range value {
		entry, err := fixed.entryFromValue(k, v)
		if err != nil {
			return nil, err
		}
		fixed.table[k] = entry
		fixed.size += entry.size()
	}
	return fixed, nil
}

func (m *dynamicMap[K, V]) FromBytes(buf []byte, offset int) (FixedCodec[map[K]V], error) {
	n, err := readLength(buf, offset, m.name)
	if err != nil {
		return nil, err
	}
	fixed := m.resolved(n)
	if fixed.table == nil {
		if err := needRead(buf, offset, fixed.size, m.name); err != nil {
			return nil, err
		}
		return fixed, nil
	}
	cursor := offset + lengthPrefix
	for i := 0; i < n; i++ {
		k, entry, err := fixed.entryFromBytes(buf, cursor)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", m.name, i)
		}
		if _, dup := fixed.table[k]; dup {
			return nil, malformedf("%s: duplicate key %v", m.name, k)
		}
		fixed.table[k] = entry
		fixed.size += entry.size()
		cursor += entry.size()
	}
	return fixed, nil
}

type mapEntry[K comparable, V any] struct {
	key   FixedCodec[K]
	value FixedCodec[V]
}

func (e mapEntry[K, V]) size() int { return e.key.ByteSize() + e.value.ByteSize() }

// fixedMap is a resolved map. Shared key and value codecs are used when
// they are fixed; otherwise table holds the resolved pair for each key.
type fixedMap[K comparable, V any] struct {
	keySource   Codec[K]
	valueSource Codec[V]
	key         FixedCodec[K]
	value       FixedCodec[V]
	table       map[K]mapEntry[K, V]
	count       int
	size        int
	name        string
}

func (m *fixedMap[K, V]) Kind() Kind          { return KindFixed }
func (*fixedMap[K, V]) encodes(map[K]V)       {}
func (m *fixedMap[K, V]) Description() string { return m.name }
func (m *fixedMap[K, V]) ByteSize() int       { return m.size }

func (m *fixedMap[K, V]) entryFromValue(k K, v V) (mapEntry[K, V], error) {
	entry := mapEntry[K, V]{key: m.key, value: m.value}
	var err error
	if entry.key == nil {
		if entry.key, err = FixFromValue(m.keySource, k); err != nil {
			return entry, errors.Wrapf(err, "%s key %v", m.name, k)
		}
	}
	if entry.value == nil {
		if entry.value, err = FixFromValue(m.valueSource, v); err != nil {
			return entry, errors.Wrapf(err, "%s[%v]", m.name, k)
		}
	}
	return entry, nil
}

func (m *fixedMap[K, V]) entryFromBytes(buf []byte, offset int) (K, mapEntry[K, V], error) {
	var zero K
	entry := mapEntry[K, V]{key: m.key, value: m.value}
	var err error
	if entry.key == nil {
		if entry.key, err = FixFromBytes(m.keySource, buf, offset); err != nil {
			return zero, entry, err
		}
	}
	k, err := entry.key.Read(buf, offset)
	if err != nil {
		return zero, entry, err
	}
	if entry.value == nil {
		if entry.value, err = FixFromBytes(m.valueSource, buf, offset+entry.key.ByteSize()); err != nil {
			return zero, entry, err
		}
	}
	return k, entry, nil
}

func (m *fixedMap[K, V]) Write(buf []byte, offset int, value map[K]V) error {
	if len(value) != m.count {
		return shapef("%s: value has %d entries", m.name, len(value))
	}
	w := writerAt(buf, offset)
	if err := WriteValue(w, U32, uint32(len(value))); err != nil {
		return err
	}
	for k, v := range value {
		entry := mapEntry[K, V]{key: m.key, value: m.value}
		if m.table != nil {
			var ok bool
			if entry, ok = m.table[k]; !ok {
				return shapef("%s: key %v was not part of the resolved value", m.name, k)
			}
		}
		if err := WriteValue(w, entry.key, k); err != nil {
			return errors.Wrapf(err, "%s key %v", m.name, k)
		}
		if err := WriteValue(w, entry.value, v); err != nil {
			return errors.Wrapf(err, "%s[%v]", m.name, k)
		}
	}
	if written := w.Offset() - offset; written != m.size {
		return sizeMismatchf("%s: wrote %d bytes, resolved for %d", m.name, written, m.size)
	}
	return nil
}

func (m *fixedMap[K, V]) Read(buf []byte, offset int) (map[K]V, error) {
	r := NewReader(buf, offset)
	n, err := ReadValue(r, U32)
	if err != nil {
		return nil, err
	}
	if uint64(n) != uint64(m.count) {
		return nil, malformedf("%s: count header says %d", m.name, n)
	}
	out := make(map[K]V, m.count)
	for i := 0; i < m.count; i++ {
		_, entry, err := m.entryFromBytes(buf, r.Offset())
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", m.name, i)
		}
		k, err := ReadValue(r, entry.key)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", m.name, i)
		}
		if _, dup := out[k]; dup {
			return nil, malformedf("%s: duplicate key %v", m.name, k)
		}
		v, err := ReadValue(r, entry.value)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%v]", m.name, k)
		}
		out[k] = v
	}
	if read := r.Offset() - offset; read != m.size {
		return nil, malformedf("%s: read %d bytes, resolved for %d", m.name, read, m.size)
	}
	return out, nil
}
