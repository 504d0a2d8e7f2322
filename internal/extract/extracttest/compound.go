package extracttest

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strings"
	"unicode/utf16"
)

// Stream is a named stream stored in a compound file.
type Stream struct {
	Name string
	Data []byte
}

// WordCLSID is the root storage class id of a Word 97-2003 document.
var WordCLSID = [16]byte{0x06, 0x09, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0xc0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}

const (
	sectorSize     = 512
	miniSectorSize = 64
	dirEntrySize   = 128

	freeSect   = 0xFFFFFFFF
	endOfChain = 0xFFFFFFFE
	fatSect    = 0xFFFFFFFD
	noStream   = 0xFFFFFFFF
)

// Compound returns a version 3 compound binary file holding streams at the
// root storage. Streams must be smaller than 4096 bytes each and under 8 KiB
// together; they are stored in the mini stream.
func Compound(streams ...Stream) []byte {
	return CompoundWithCLSID([16]byte{}, streams...)
}

// CompoundWithCLSID is Compound with an explicit root storage class id.
func CompoundWithCLSID(clsid [16]byte, streams ...Stream) []byte {
	sorted := append([]Stream(nil), streams...)
	sort.Slice(sorted, func(i, j int) bool { return lessName(sorted[i].Name, sorted[j].Name) })

	var mini bytes.Buffer
	var miniFAT []uint32
	starts := make([]uint32, len(sorted))
	for i, s := range sorted {
		n := (len(s.Data) + miniSectorSize - 1) / miniSectorSize
		if n == 0 {
			starts[i] = endOfChain
			continue
		}
		first := uint32(len(miniFAT))
		starts[i] = first
		for k := 0; k < n; k++ {
			if k == n-1 {
				miniFAT = append(miniFAT, endOfChain)
			} else {
				miniFAT = append(miniFAT, first+uint32(k)+1)
			}
		}
		mini.Write(s.Data)
		mini.Write(make([]byte, n*miniSectorSize-len(s.Data)))
	}
	miniSize := mini.Len()
	if rem := miniSize % sectorSize; rem != 0 {
		mini.Write(make([]byte, sectorSize-rem))
	}

	dirSectors := (len(sorted) + 1 + 3) / 4
	firstDir := uint32(1)
	miniFATSector := firstDir + uint32(dirSectors)
	firstMini := miniFATSector + 1
	miniSectors := mini.Len() / sectorSize

	fat := make([]uint32, sectorSize/4)
	for i := range fat {
		fat[i] = freeSect
	}
	fat[0] = fatSect
	chain(fat, firstDir, dirSectors)
	chain(fat, miniFATSector, 1)
	chain(fat, firstMini, miniSectors)

	var out bytes.Buffer
	out.Write(header(firstDir, miniFATSector))
	writeUint32s(&out, fat)

	dir := make([]byte, dirSectors*sectorSize)
	rootStart := uint32(endOfChain)
	if miniSectors > 0 {
		rootStart = firstMini
	}
	rootChild := uint32(noStream)
	if len(sorted) > 0 {
		rootChild = 1
	}
	putEntry(dir[0:], "Root Entry", 5, noStream, rootChild, clsid, rootStart, uint64(miniSize))
	for i, s := range sorted {
		right := uint32(noStream)
		if i+1 < len(sorted) {
			right = uint32(i + 2)
		}
		putEntry(dir[(i+1)*dirEntrySize:], s.Name, 2, right, noStream, [16]byte{}, starts[i], uint64(len(s.Data)))
	}
	for i := len(sorted) + 1; i < dirSectors*4; i++ {
		e := dir[i*dirEntrySize:]
		binary.LittleEndian.PutUint32(e[0x44:], noStream)
		binary.LittleEndian.PutUint32(e[0x48:], noStream)
		binary.LittleEndian.PutUint32(e[0x4C:], noStream)
	}
	out.Write(dir)

	mf := make([]uint32, sectorSize/4)
	for i := range mf {
		mf[i] = freeSect
	}
	copy(mf, miniFAT)
	writeUint32s(&out, mf)

	out.Write(mini.Bytes())
	return out.Bytes()
}

func header(firstDir, miniFATSector uint32) []byte {
	h := make([]byte, sectorSize)
	copy(h, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le := binary.LittleEndian
	le.PutUint16(h[0x18:], 0x003E)
	le.PutUint16(h[0x1A:], 0x0003)
	le.PutUint16(h[0x1C:], 0xFFFE)
	le.PutUint16(h[0x1E:], 9)
	le.PutUint16(h[0x20:], 6)
	le.PutUint32(h[0x2C:], 1)
	le.PutUint32(h[0x30:], firstDir)
	le.PutUint32(h[0x38:], 4096)
	le.PutUint32(h[0x3C:], miniFATSector)
	le.PutUint32(h[0x40:], 1)
	le.PutUint32(h[0x44:], endOfChain)
	le.PutUint32(h[0x4C:], 0)
	for i := 1; i < 109; i++ {
		le.PutUint32(h[0x4C+4*i:], freeSect)
	}
	return h
}

func putEntry(e []byte, name string, objType byte, right, child uint32, clsid [16]byte, start uint32, size uint64) {
	le := binary.LittleEndian
	u := utf16.Encode([]rune(name))
	for i, c := range u {
		le.PutUint16(e[2*i:], c)
	}
	le.PutUint16(e[0x40:], uint16((len(u)+1)*2))
	e[0x42] = objType
	e[0x43] = 1
	le.PutUint32(e[0x44:], noStream)
	le.PutUint32(e[0x48:], right)
	le.PutUint32(e[0x4C:], child)
	copy(e[0x50:], clsid[:])
	le.PutUint32(e[0x74:], start)
	le.PutUint64(e[0x78:], size)
}

func chain(fat []uint32, first uint32, n int) {
	for k := 0; k < n; k++ {
		sec := first + uint32(k)
		if k == n-1 {
			fat[sec] = endOfChain
		} else {
			fat[sec] = sec + 1
		}
	}
}

func writeUint32s(buf *bytes.Buffer, vals []uint32) {
	b := make([]byte, 4)
	for _, v := range vals {
		binary.LittleEndian.PutUint32(b, v)
		buf.Write(b)
	}
}

// lessName orders directory entry names the way compound files require:
// shorter names first, then case-insensitive comparison.
func lessName(a, b string) bool {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	if len(ua) != len(ub) {
		return len(ua) < len(ub)
	}
	return strings.ToUpper(a) < strings.ToUpper(b)
}
