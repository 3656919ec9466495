package model

// PeriodLabels 一天内全部节次（有序）：N 为午间，A–D 为夜间
var PeriodLabels = []string{"1", "2", "3", "4", "N", "5", "6", "7", "8", "9", "A", "B", "C", "D"}

// PeriodClock 节次起讫时间（HH:MM）
type PeriodClock struct {
	Start string
	End   string
}

// PeriodClocks 节次与钟点的对应
var PeriodClocks = map[string]PeriodClock{
	"1": {"08:10", "09:00"},
	"2": {"09:10", "10:00"},
	"3": {"10:10", "11:00"},
	"4": {"11:10", "12:00"},
	"N": {"12:10", "13:00"},
	"5": {"13:10", "14:00"},
	"6": {"14:10", "15:00"},
	"7": {"15:10", "16:00"},
	"8": {"16:10", "17:00"},
	"9": {"17:10", "18:00"},
	"A": {"18:30", "19:20"},
	"B": {"19:20", "20:10"},
	"C": {"20:20", "21:10"},
	"D": {"21:10", "22:00"},
}

// PeriodIndex 节次在一天中的序号；未知节次返回 -1
func PeriodIndex(label string) int {
	for i, p := range PeriodLabels {
		if p == label {
			return i
		}
	}
	return -1
}

// DefaultClassroomCategory 教室名称无非数字前缀时的分类
const DefaultClassroomCategory = "其他"

// ClassroomAvailability 空教室查询结果（每次请求即时计算，不落库）
type ClassroomAvailability struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	Timetable []string `json:"timetable"`
	Link      *string  `json:"link"`
}
