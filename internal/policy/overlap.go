package policy

import "time"

// Overlaps проверка пересечения двух полуоткрытых интервалов тремя условиями:
// начало a внутри b, конец a внутри b, либо a целиком накрывает b.
// Встречи "встык" (конец одной = начало другой) не пересекаются.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	startsInside := !aStart.Before(bStart) && aStart.Before(bEnd)
	endsInside := aEnd.After(bStart) && !aEnd.After(bEnd)
	covers := !aStart.After(bStart) && !aEnd.Before(bEnd)
	return startsInside || endsInside || covers
}
