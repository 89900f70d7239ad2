package spinmc

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Snapshots are flat dumps of the Monte Carlo state behind a versioned
// header. They are not bit-critical across versions; a version mismatch is
// an error.
var snapshotMagic = [4]byte{'S', 'P', 'M', 'C'}

const snapshotVersion uint32 = 1

const (
	kindIsing uint8 = iota
	kindPotts
	kindClock
	kindXY
	kindQuantumXXZ
	kindTFIsing
)

func modelKind(m Model) (uint8, error) {
	switch m.(type) {
	case *Ising:
		return kindIsing, nil
	case *Potts:
		return kindPotts, nil
	case *Clock:
		return kindClock, nil
	case *XY:
		return kindXY, nil
	case *QuantumXXZ:
		return kindQuantumXXZ, nil
	case *TFIsing:
		return kindTFIsing, nil
	}
	return 0, errors.Errorf("model %T", m)
}

// WriteSnapshot dumps the spin configuration and, for quantum models,
// the operator string of m.
func WriteSnapshot(w io.Writer, m Model) error {
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return errors.Wrap(err, "")
	}
	if err := binary.Write(w, binary.LittleEndian, snapshotVersion); err != nil {
		return errors.Wrap(err, "")
	}
	kind, err := modelKind(m)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := binary.Write(w, binary.LittleEndian, kind); err != nil {
		return errors.Wrap(err, "")
	}

	switch m := m.(type) {
	case *Ising:
		return writeSpins(w, m.Spins)
	case *Potts:
		return writeSpins(w, m.Spins)
	case *Clock:
		return writeSpins(w, m.Spins)
	case *XY:
		if err := binary.Write(w, binary.LittleEndian, int64(len(m.Spins))); err != nil {
			return errors.Wrap(err, "")
		}
		return errors.Wrap(binary.Write(w, binary.LittleEndian, m.Spins), "")
	case *QuantumXXZ:
		return m.writeQuantum(w)
	case *TFIsing:
		return m.QuantumXXZ.writeQuantum(w)
	}
	return errors.Errorf("model %T", m)
}

func writeSpins(w io.Writer, spins []int8) error {
	if err := binary.Write(w, binary.LittleEndian, int64(len(spins))); err != nil {
		return errors.Wrap(err, "")
	}
	return errors.Wrap(binary.Write(w, binary.LittleEndian, spins), "")
}

type wireOperator struct {
	Type       uint8
	IsDiagonal uint8
	Tau        float64
	Space      int32
	U, V       int32
}

func (m *QuantumXXZ) writeQuantum(w io.Writer) error {
	if err := writeSpins(w, m.Spins); err != nil {
		return errors.Wrap(err, "")
	}
	if err := binary.Write(w, binary.LittleEndian, int64(len(m.Ops))); err != nil {
		return errors.Wrap(err, "")
	}
	for _, op := range m.Ops {
		wop := wireOperator{Type: uint8(op.Type), Tau: op.Tau, Space: op.Space, U: op.U, V: op.V}
		if op.IsDiagonal {
			wop.IsDiagonal = 1
		}
		if err := binary.Write(w, binary.LittleEndian, wop); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// ReadSnapshot restores the state of m from a snapshot.
// The snapshot must have been written for a model of the same kind and size.
func ReadSnapshot(r io.Reader, m Model) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return errors.Wrap(err, "")
	}
	if magic != snapshotMagic {
		return errors.Errorf("magic %v", magic)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return errors.Wrap(err, "")
	}
	if version != snapshotVersion {
		return errors.Errorf("version %d, expected %d", version, snapshotVersion)
	}
	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return errors.Wrap(err, "")
	}
	mKind, err := modelKind(m)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if kind != mKind {
		return errors.Errorf("model kind %d, expected %d", kind, mKind)
	}

	switch m := m.(type) {
	case *Ising:
		return readSpins(r, m.Spins)
	case *Potts:
		return readSpins(r, m.Spins)
	case *Clock:
		return readSpins(r, m.Spins)
	case *XY:
		var n int64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return errors.Wrap(err, "")
		}
		if n != int64(len(m.Spins)) {
			return errors.Errorf("%d spins, expected %d", n, len(m.Spins))
		}
		return errors.Wrap(binary.Read(r, binary.LittleEndian, m.Spins), "")
	case *QuantumXXZ:
		return m.readQuantum(r)
	case *TFIsing:
		return m.QuantumXXZ.readQuantum(r)
	}
	return errors.Errorf("model %T", m)
}

func readSpins(r io.Reader, spins []int8) error {
	var n int64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return errors.Wrap(err, "")
	}
	if n != int64(len(spins)) {
		return errors.Errorf("%d spins, expected %d", n, len(spins))
	}
	return errors.Wrap(binary.Read(r, binary.LittleEndian, spins), "")
}

func (m *QuantumXXZ) readQuantum(r io.Reader) error {
	if err := readSpins(r, m.Spins); err != nil {
		return errors.Wrap(err, "")
	}
	var n int64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return errors.Wrap(err, "")
	}
	m.Ops = m.Ops[:0]
	for i := int64(0); i < n; i++ {
		var wop wireOperator
		if err := binary.Read(r, binary.LittleEndian, &wop); err != nil {
			return errors.Wrap(err, "")
		}
		op := LoopOperator{
			Type:       LoopElementType(wop.Type),
			IsDiagonal: wop.IsDiagonal == 1,
			Tau:        wop.Tau,
			Space:      wop.Space,
			U:          wop.U,
			V:          wop.V,
		}
		m.Ops = append(m.Ops, op)
	}
	return nil
}
