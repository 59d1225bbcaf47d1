package character

// Character 定义了一个可被投票的角色及其战绩
type Character struct {
	// ID 是角色的唯一正整数ID，在播种时按 1..N 分配，之后不会改变或复用
	ID int `json:"id"`

	// Name 是角色的展示名称, 例如 "Good Vibe #7"
	Name string `json:"name"`

	// ExternalURL 是角色在外部市场上的详情页
	ExternalURL string `json:"url"`

	// ImageURL 是角色图片的地址
	ImageURL string `json:"image"`

	// --- 以下是用于排名的字段 ---

	// Wins 是获胜的场次
	Wins int `json:"wins"`

	// Losses 是失败的场次
	Losses int `json:"losses"`

	// Matches 是参与的总场次，始终等于 Wins + Losses
	Matches int `json:"matches"`
}

// WinRate 返回胜率 (0到1之间)，没有比赛记录时记为0
func (c Character) WinRate() float64 {
	if c.Matches == 0 {
		return 0
	}
	return float64(c.Wins) / float64(c.Matches)
}

// Consistent 报告计数器是否满足非负且 Matches == Wins + Losses
func (c Character) Consistent() bool {
	return c.Wins >= 0 && c.Losses >= 0 && c.Matches == c.Wins+c.Losses
}
