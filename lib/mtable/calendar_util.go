package mtable

import "time"

// dayToYMD and ymdToDayNumber render/parse the YYYYMMDD fields of a
// canonical part name. Part names are always Gregorian regardless of
// which Calendar the engine was configured with for month bucketing,
// since the on-disk grammar is fixed.
func dayToYMD(day int32) (int, int, int) {
	t := dayEpoch.Add(time.Duration(day) * 24 * time.Hour)
	return t.Year(), int(t.Month()), t.Day()
}

func ymdToDayNumber(y, m, d int) int32 {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	days := t.Sub(dayEpoch).Hours() / 24
	return int32(days)
}

var dayEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
