package pointcloud

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/drivelab/perspective/logging"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// NewFromFile returns a pointcloud read in from the given file.
func NewFromFile(fn string, logger logging.Logger) (PointCloud, error) {
	switch filepath.Ext(fn) {
	case ".las":
		return NewFromLASFile(fn, logger)
	case ".pcd":
		return NewFromPCDFile(fn)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// NewFromPCDFile reads a PCD file.
func NewFromPCDFile(fn string) (PointCloud, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	pc, err := ReadPCD(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", fn)
	}
	return pc, nil
}

// WriteToPCDFile writes the point cloud out to a PCD file.
func WriteToPCDFile(cloud PointCloud, fn string, outputType PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err = ToPCD(cloud, w, outputType); err != nil {
		return err
	}
	return w.Flush()
}

// pointValueDataTag encodes if the point has value data.
const pointValueDataTag = "rc|pv"

// NewFromLASFile returns a point cloud from reading a LAS file.
func NewFromLASFile(fn string, logger logging.Logger) (PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	var hasValue bool
	var valueData []byte
	for _, d := range lf.VlrData {
		if d.Description == pointValueDataTag {
			hasValue = true
			valueData = d.BinaryData
			break
		}
	}
	if hasValue && len(valueData) < lf.Header.NumberPoints*8 {
		logger.Warnw("ignoring truncated point values in LAS file", "file", fn, "bytes", len(valueData))
		hasValue = false
	}

	pc := NewWithPrealloc(lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		dd := NewIntensityData(float64(data.Intensity))
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			r := uint8(p.RgbData().Red / 256)
			g := uint8(p.RgbData().Green / 256)
			b := uint8(p.RgbData().Blue / 256)
			dd.SetColor(color.NRGBA{r, g, b, 255})
		}

		if hasValue {
			dd.SetValue(int(binary.LittleEndian.Uint64(valueData[i*8 : (i*8)+8])))
		}

		if err := pc.Set(r3.Vector{X: data.X, Y: data.Y, Z: data.Z}, dd); err != nil {
			return nil, err
		}
	}
	logger.Debugw("read LAS file", "file", fn, "points", pc.Size())
	return pc, nil
}

// WriteToLASFile writes the point cloud out to a LAS file.
func WriteToLASFile(cloud PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	meta := cloud.MetaData()

	pointFormatID := 0
	if meta.HasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	var pVals []int
	if meta.HasValue {
		pVals = make([]int, 0, cloud.Size())
	}
	var lastErr error
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		lp = pr0

		if d != nil && d.HasIntensity() {
			pr0.Intensity = uint16(math.Round(math.Max(0, math.Min(d.Intensity(), math.MaxUint16))))
		}

		if meta.HasColor {
			red, green, blue := 255, 255, 255
			if d != nil && d.HasColor() {
				r, g, b := d.RGB255()
				red, green, blue = int(r), int(g), int(b)
			}
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(red * 256),
					Green: uint16(green * 256),
					Blue:  uint16(blue * 256),
				},
			}
		}
		if meta.HasValue {
			if d != nil && d.HasValue() {
				pVals = append(pVals, d.Value())
			} else {
				pVals = append(pVals, 0)
			}
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = lastErr
		return
	}
	if meta.HasValue {
		var buf bytes.Buffer
		for _, v := range pVals {
			bytes := make([]byte, 8)
			binary.LittleEndian.PutUint64(bytes, uint64(v))
			buf.Write(bytes)
		}
		if err = lf.AddVLR(lidario.VLR{
			UserID:                  "",
			Description:             pointValueDataTag,
			BinaryData:              buf.Bytes(),
			RecordLengthAfterHeader: buf.Len(),
		}); err != nil {
			return
		}
	}

	// nolint:nakedret
	return
}

func colorToPCDInt(pt Data) uint32 {
	if pt == nil || !pt.HasColor() {
		return 255 << 16
	}
	r, g, b := pt.RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func pcdIntToColor(c uint32) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}

// pcdField is a column of a PCD file.
type pcdField struct {
	name  string
	size  int
	typ   pcdValType
	count int
}

// pcdFieldsFor returns the columns written for a cloud with the given meta data.
func pcdFieldsFor(meta MetaData) []pcdField {
	fields := []pcdField{
		{name: "x", size: 4, typ: pcdValFloat, count: 1},
		{name: "y", size: 4, typ: pcdValFloat, count: 1},
		{name: "z", size: 4, typ: pcdValFloat, count: 1},
	}
	if meta.HasColor {
		fields = append(fields, pcdField{name: "rgb", size: 4, typ: pcdValUInt, count: 1})
	}
	if meta.HasIntensity {
		fields = append(fields, pcdField{name: "intensity", size: 4, typ: pcdValFloat, count: 1})
	}
	if meta.HasValue {
		fields = append(fields, pcdField{name: "label", size: 4, typ: pcdValInt, count: 1})
	}
	return fields
}

// ToPCD writes the cloud in the PCD v0.7 format. Positions are written in metres.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	var data string
	switch outputType {
	case PCDAscii:
		data = "ascii"
	case PCDBinary:
		data = "binary"
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	default:
		return errors.Errorf("unknown PCD type %d", outputType)
	}

	fields := pcdFieldsFor(cloud.MetaData())
	var names, sizes, types, counts []string
	for _, f := range fields {
		names = append(names, f.name)
		sizes = append(sizes, strconv.Itoa(f.size))
		types = append(types, string(f.typ))
		counts = append(counts, strconv.Itoa(f.count))
	}
	if _, err := fmt.Fprintf(out,
		"VERSION .7\n"+
			"FIELDS %s\n"+
			"SIZE %s\n"+
			"TYPE %s\n"+
			"COUNT %s\n"+
			"WIDTH %d\n"+
			"HEIGHT 1\n"+
			"VIEWPOINT 0 0 0 1 0 0 0\n"+
			"POINTS %d\n"+
			"DATA %s\n",
		strings.Join(names, " "),
		strings.Join(sizes, " "),
		strings.Join(types, " "),
		strings.Join(counts, " "),
		cloud.Size(),
		cloud.Size(),
		data,
	); err != nil {
		return err
	}
	return writePCDData(cloud, out, fields, outputType)
}

func pcdFieldValue(name string, pos r3.Vector, d Data) float64 {
	switch name {
	case "x":
		return pos.X
	case "y":
		return pos.Y
	case "z":
		return pos.Z
	case "rgb":
		return float64(colorToPCDInt(d))
	case "intensity":
		if d == nil {
			return 0
		}
		return d.Intensity()
	case "label":
		if d == nil {
			return 0
		}
		return float64(d.Value())
	default:
		return 0
	}
}

func writePCDData(cloud PointCloud, out io.Writer, fields []pcdField, pcdtype PCDType) error {
	var err error
	tokens := make([]string, len(fields))
	buf := make([]byte, 4*len(fields))
	cloud.Iterate(0, 0, func(pos r3.Vector, d Data) bool {
		for i, f := range fields {
			v := pcdFieldValue(f.name, pos, d)
			switch pcdtype {
			case PCDBinary:
				var bits uint32
				switch f.typ {
				case pcdValFloat:
					bits = math.Float32bits(float32(v))
				case pcdValInt:
					bits = uint32(int32(v))
				case pcdValUInt:
					bits = uint32(v)
				}
				binary.LittleEndian.PutUint32(buf[4*i:], bits)
			case PCDAscii:
				if f.typ == pcdValFloat {
					tokens[i] = strconv.FormatFloat(v, 'g', -1, 64)
				} else {
					tokens[i] = strconv.FormatInt(int64(v), 10)
				}
			case PCDCompressed:
			}
		}
		if pcdtype == PCDBinary {
			_, err = out.Write(buf)
		} else {
			_, err = fmt.Fprintln(out, strings.Join(tokens, " "))
		}
		return err == nil
	})
	return err
}

type pcdValType string

const (
	pcdValFloat pcdValType = "F"
	pcdValInt   pcdValType = "I"
	pcdValUInt  pcdValType = "U"
)

type pcdHeader struct {
	fields []pcdField
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

// index returns the position of the named field or -1.
func (h *pcdHeader) index(name string) int {
	for i, f := range h.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	value = strings.TrimSpace(value)
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}
	checkColumns := func() error {
		if len(tokens) != len(header.fields) {
			return errors.Errorf("unexpected number of fields in %s line", name)
		}
		return nil
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		header.fields = make([]pcdField, len(tokens))
		for i, token := range tokens {
			header.fields[i] = pcdField{name: token, count: 1}
		}
		for _, required := range []string{"x", "y", "z"} {
			if header.index(required) < 0 {
				return errors.Errorf("pcd fields %q do not contain %s", value, required)
			}
		}
	case "SIZE":
		if err := checkColumns(); err != nil {
			return err
		}
		for i, token := range tokens {
			header.fields[i].size, err = strconv.Atoi(token)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
			switch header.fields[i].size {
			case 1, 2, 4, 8:
			default:
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if err := checkColumns(); err != nil {
			return err
		}
		for i, token := range tokens {
			typ := pcdValType(token)
			switch typ {
			case pcdValFloat:
				if s := header.fields[i].size; s != 4 && s != 8 {
					return errors.Errorf("float field %s must have size 4 or 8", header.fields[i].name)
				}
			case pcdValInt, pcdValUInt:
			default:
				return errors.Errorf("invalid TYPE field %s", token)
			}
			header.fields[i].typ = typ
		}
	case "COUNT":
		if err := checkColumns(); err != nil {
			return err
		}
		for i, token := range tokens {
			header.fields[i].count, err = strconv.Atoi(token)
			if err != nil || header.fields[i].count < 1 {
				return errors.Errorf("invalid COUNT field %s", token)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		for _, token := range tokens {
			if _, err := strconv.ParseFloat(token, 64); err != nil {
				return errors.Wrapf(err, "invalid VIEWPOINT field %s", token)
			}
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadPCD reads a PCD v0.7 cloud. The x, y and z fields are required; rgb, intensity and label
// are read into the point data and any other field is skipped.
func ReadPCD(inRaw io.Reader) (PointCloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	for _, f := range header.fields {
		if f.typ == "" || f.size == 0 {
			return nil, errors.Errorf("pcd field %s has no type or size", f.name)
		}
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header)
	case PCDBinary:
		return readPCDBinary(in, header)
	case PCDCompressed:
		return nil, errors.New("compressed pcd not yet supported")
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) (PointCloud, error) {
	pc := NewWithPrealloc(int(header.points))
	columns := 0
	for _, f := range header.fields {
		columns += f.count
	}
	values := make([]float64, len(header.fields))
	for i := 0; i < int(header.points); {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) != columns {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		col := 0
		for j, f := range header.fields {
			token := tokens[col]
			col += f.count
			if f.typ == pcdValFloat {
				values[j], err = strconv.ParseFloat(token, 64)
			} else {
				var n int64
				n, err = strconv.ParseInt(token, 10, 64)
				values[j] = float64(n)
			}
			if err != nil {
				return nil, errors.Wrapf(err, "invalid point %d field %s", i, f.name)
			}
		}
		if err := setPCDPoint(pc, values, header); err != nil {
			return nil, errors.Wrapf(err, "point %d", i)
		}
		i++
	}
	return pc, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) (PointCloud, error) {
	recordSize := 0
	for _, f := range header.fields {
		recordSize += f.size * f.count
	}
	record := make([]byte, recordSize)
	values := make([]float64, len(header.fields))
	pc := NewWithPrealloc(int(header.points))
	for i := 0; i < int(header.points); i++ {
		if _, err := io.ReadFull(in, record); err != nil {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		offset := 0
		for j, f := range header.fields {
			values[j] = decodePCDValue(record[offset:offset+f.size], f)
			offset += f.size * f.count
		}
		if err := setPCDPoint(pc, values, header); err != nil {
			return nil, errors.Wrapf(err, "point %d", i)
		}
	}
	return pc, nil
}

func decodePCDValue(b []byte, f pcdField) float64 {
	switch f.typ {
	case pcdValFloat:
		if f.size == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(b))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case pcdValInt:
		switch f.size {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(binary.LittleEndian.Uint16(b)))
		case 4:
			return float64(int32(binary.LittleEndian.Uint32(b)))
		default:
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}
	default:
		switch f.size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(binary.LittleEndian.Uint16(b))
		case 4:
			return float64(binary.LittleEndian.Uint32(b))
		default:
			return float64(binary.LittleEndian.Uint64(b))
		}
	}
}

func setPCDPoint(pc PointCloud, values []float64, header pcdHeader) error {
	pos := r3.Vector{
		X: values[header.index("x")],
		Y: values[header.index("y")],
		Z: values[header.index("z")],
	}
	d := NewBasicData()
	if i := header.index("rgb"); i >= 0 {
		var packed uint32
		if header.fields[i].typ == pcdValFloat {
			// PCL stores packed colours in the bits of a float
			packed = math.Float32bits(float32(values[i]))
		} else {
			packed = uint32(values[i])
		}
		d.SetColor(pcdIntToColor(packed))
	}
	if i := header.index("intensity"); i >= 0 {
		d.SetIntensity(values[i])
	}
	if i := header.index("label"); i >= 0 {
		d.SetValue(int(values[i]))
	}
	return pc.Set(pos, d)
}
