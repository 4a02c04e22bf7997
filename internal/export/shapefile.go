package export

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"io"
	"strconv"
	"time"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// shpField describes one DBF attribute column. Shapefile field names are
// capped at 10 characters, so the spec-facing names below are already
// truncated.
type shpField struct {
	name    string
	typ     byte
	length  byte
	decimal byte
}

var shpFields = []shpField{
	{"BSSID", 'C', 17, 0},
	{"SSID", 'C', 32, 0},
	{"ENCRYPT", 'C', 16, 0},
	{"LAT", 'N', 20, 6},
	{"LON", 'N', 20, 6},
	{"LASTSEEN", 'C', 19, 0},
}

// writeShapefile emits a zip archive containing the three files a point
// shapefile requires: aps.shp (geometry), aps.shx (record index) and
// aps.dbf (attributes).
func writeShapefile(w io.Writer, entries []models.APCacheEntry) error {
	shp, shx := buildSHPAndSHX(entries)
	dbf := buildDBF(entries)

	zw := zip.NewWriter(w)
	for name, data := range map[string][]byte{"aps.shp": shp, "aps.shx": shx, "aps.dbf": dbf} {
		f, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}

const (
	shpShapeTypePoint = 1
	shpHeaderBytes    = 100
	shpRecordHeader   = 8
	shpPointContent   = 20 // shape type int32 + X,Y float64
)

func buildSHPAndSHX(entries []models.APCacheEntry) (shp []byte, shx []byte) {
	var minX, minY, maxX, maxY float64
	for i, e := range entries {
		if i == 0 || e.Lon < minX {
			minX = e.Lon
		}
		if i == 0 || e.Lon > maxX {
			maxX = e.Lon
		}
		if i == 0 || e.Lat < minY {
			minY = e.Lat
		}
		if i == 0 || e.Lat > maxY {
			maxY = e.Lat
		}
	}

	shpFileLen := (shpHeaderBytes + len(entries)*(shpRecordHeader+shpPointContent)) / 2
	shxFileLen := (shpHeaderBytes + len(entries)*8) / 2

	var shpBuf, shxBuf bytes.Buffer
	writeSHPHeader(&shpBuf, shpFileLen, minX, minY, maxX, maxY)
	writeSHPHeader(&shxBuf, shxFileLen, minX, minY, maxX, maxY)

	offsetWords := shpHeaderBytes / 2
	for i, e := range entries {
		recordNum := int32(i + 1)

		binary.Write(&shpBuf, binary.BigEndian, recordNum)
		binary.Write(&shpBuf, binary.BigEndian, int32(shpPointContent/2))
		binary.Write(&shpBuf, binary.LittleEndian, int32(shpShapeTypePoint))
		binary.Write(&shpBuf, binary.LittleEndian, e.Lon)
		binary.Write(&shpBuf, binary.LittleEndian, e.Lat)

		binary.Write(&shxBuf, binary.BigEndian, int32(offsetWords))
		binary.Write(&shxBuf, binary.BigEndian, int32(shpPointContent/2))
		offsetWords += (shpRecordHeader + shpPointContent) / 2
	}

	return shpBuf.Bytes(), shxBuf.Bytes()
}

func writeSHPHeader(buf *bytes.Buffer, fileLenWords int, minX, minY, maxX, maxY float64) {
	binary.Write(buf, binary.BigEndian, int32(9994))
	for i := 0; i < 5; i++ {
		binary.Write(buf, binary.BigEndian, int32(0))
	}
	binary.Write(buf, binary.BigEndian, int32(fileLenWords))
	binary.Write(buf, binary.LittleEndian, int32(1000))
	binary.Write(buf, binary.LittleEndian, int32(shpShapeTypePoint))
	binary.Write(buf, binary.LittleEndian, minX)
	binary.Write(buf, binary.LittleEndian, minY)
	binary.Write(buf, binary.LittleEndian, maxX)
	binary.Write(buf, binary.LittleEndian, maxY)
	for i := 0; i < 4; i++ {
		binary.Write(buf, binary.LittleEndian, float64(0))
	}
}

func buildDBF(entries []models.APCacheEntry) []byte {
	recordSize := 1
	for _, f := range shpFields {
		recordSize += int(f.length)
	}
	headerSize := 32 + 32*len(shpFields) + 1

	var buf bytes.Buffer
	buf.WriteByte(0x03)
	now := time.Now().UTC()
	buf.WriteByte(byte(now.Year() - 1900))
	buf.WriteByte(byte(now.Month()))
	buf.WriteByte(byte(now.Day()))
	binary.Write(&buf, binary.LittleEndian, int32(len(entries)))
	binary.Write(&buf, binary.LittleEndian, int16(headerSize))
	binary.Write(&buf, binary.LittleEndian, int16(recordSize))
	buf.Write(make([]byte, 20)) // reserved

	for _, f := range shpFields {
		name := make([]byte, 11)
		copy(name, f.name)
		buf.Write(name)
		buf.WriteByte(f.typ)
		buf.Write(make([]byte, 4))
		buf.WriteByte(f.length)
		buf.WriteByte(f.decimal)
		buf.Write(make([]byte, 14))
	}
	buf.WriteByte(0x0D)

	for _, e := range entries {
		buf.WriteByte(0x20)
		buf.Write(padField(e.BSSID, 17))
		buf.Write(padField(e.SSID, 32))
		buf.Write(padField(e.Encryption, 16))
		buf.Write(numericField(e.Lat, 20, 6))
		buf.Write(numericField(e.Lon, 20, 6))
		buf.Write(padField(e.LastSeen.UTC().Format(time.RFC3339), 19))
	}
	buf.WriteByte(0x1A)

	return buf.Bytes()
}

func padField(s string, width int) []byte {
	out := make([]byte, width)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	if len(s) > width {
		copy(out, s[:width])
	}
	return out
}

func formatNumeric(v float64, decimal int) string {
	return strconv.FormatFloat(v, 'f', decimal, 64)
}

func numericField(v float64, width, decimal int) []byte {
	s := formatNumeric(v, decimal)
	out := make([]byte, width)
	for i := range out {
		out[i] = ' '
	}
	if len(s) > width {
		s = s[:width]
	}
	copy(out[width-len(s):], s)
	return out
}
