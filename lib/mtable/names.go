package mtable

import (
	"fmt"
	"regexp"
	"strconv"
)

// partNameRE is the canonical part name grammar:
// ^([0-9]{8})_([0-9]{8})_([0-9]+)_([0-9]+)_([0-9]+)$
var partNameRE = regexp.MustCompile(`^([0-9]{8})_([0-9]{8})_([0-9]+)_([0-9]+)_([0-9]+)$`)

const tmpPrefix = "tmp_"

// formatPartName renders the canonical part directory name:
// YYYYMMDD_YYYYMMDD_minId_maxId_level
func formatPartName(leftDate, rightDate int32, left, right, level uint64) string {
	ly, lm, ld := dayToYMD(leftDate)
	ry, rm, rd := dayToYMD(rightDate)
	return fmt.Sprintf("%04d%02d%02d_%04d%02d%02d_%d_%d_%d", ly, lm, ld, ry, rm, rd, left, right, level)
}

// parsedPartName holds the fields extracted from a canonical part
// directory name.
type parsedPartName struct {
	leftDate, rightDate int32
	left, right, level  uint64
}

// parsePartName validates name against partNameRE and extracts its
// five fields. Names that don't match the regex (including the
// tmp_<name> directories used for in-flight parts) are rejected, so
// partial merge outputs left under tmp_* are ignored by the next load
// pass.
func parsePartName(name string) (parsedPartName, error) {
	m := partNameRE.FindStringSubmatch(name)
	if m == nil {
		return parsedPartName{}, newErr(KindLogical, "part name %q doesn't match the canonical grammar", name)
	}
	leftDate, err := ymdToDay(m[1])
	if err != nil {
		return parsedPartName{}, wrapErr(KindLogical, err, "invalid left date in part name %q", name)
	}
	rightDate, err := ymdToDay(m[2])
	if err != nil {
		return parsedPartName{}, wrapErr(KindLogical, err, "invalid right date in part name %q", name)
	}
	left, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return parsedPartName{}, wrapErr(KindLogical, err, "invalid left id in part name %q", name)
	}
	right, err := strconv.ParseUint(m[4], 10, 64)
	if err != nil {
		return parsedPartName{}, wrapErr(KindLogical, err, "invalid right id in part name %q", name)
	}
	level, err := strconv.ParseUint(m[5], 10, 64)
	if err != nil {
		return parsedPartName{}, wrapErr(KindLogical, err, "invalid level in part name %q", name)
	}
	return parsedPartName{leftDate: leftDate, rightDate: rightDate, left: left, right: right, level: level}, nil
}

func ymdToDay(s string) (int32, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("expected YYYYMMDD, got %q", s)
	}
	y, err := strconv.Atoi(s[0:4])
	if err != nil {
		return 0, err
	}
	mo, err := strconv.Atoi(s[4:6])
	if err != nil {
		return 0, err
	}
	d, err := strconv.Atoi(s[6:8])
	if err != nil {
		return 0, err
	}
	return ymdToDayNumber(y, mo, d), nil
}
