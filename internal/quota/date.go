package quota

import (
	"fmt"
	"time"
)

// dateLayout 是日期的持久化格式 (ISO 8601)，与旧版 game_data.json 中的 last_played_date 一致
const dateLayout = "2006-01-02"

// Date 是一个不含时间部分的日历日期。
// 它是可比较的值类型，可以直接使用 == 判断相等。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf 返回 t 在其自身时区下的日历日期
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate 解析 "2006-01-02" 格式的日期字符串
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero 报告日期是否为零值
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Equal(other Date) bool {
	return d == other
}

// Before 报告 d 是否早于 other
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After 报告 d 是否晚于 other
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// AddDays 返回向后偏移 n 天后的日期 (n 可以为负)
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// MarshalText 实现 encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Clock 以指定时区计算"今天"。
// Now 为空时使用 time.Now，Location 为空时使用本地时区。
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// Today 返回时钟所在时区的当前日期
func (c Clock) Today() Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now().In(loc))
}
