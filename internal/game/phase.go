package game

import (
	"github.com/wfunc/mafia-game/internal/models"
)

// Phase 游戏阶段
type Phase string

const (
	PhaseNight Phase = models.PhaseNight // 夜晚：黑手党行动
	PhaseDay   Phase = models.PhaseDay   // 白天：自由讨论
	PhaseVote  Phase = models.PhaseVote  // 投票：全体表决
)

// String 返回阶段的字符串表示
func (p Phase) String() string {
	return string(p)
}

// Valid 是否为合法阶段
func (p Phase) Valid() bool {
	switch p {
	case PhaseNight, PhaseDay, PhaseVote:
		return true
	}
	return false
}

// Next 返回下一个阶段以及天数是否进位
// 循环: night -> day -> vote -> night(天数+1)
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseNight:
		return PhaseDay, false
	case PhaseDay:
		return PhaseVote, false
	default:
		return PhaseNight, true
	}
}

// WinResult 胜负判定结果
type WinResult string

const (
	WinOngoing  WinResult = "ongoing"
	WinCivilian WinResult = models.WinnerCivilian
	WinMafia    WinResult = models.WinnerMafia
)

// EvaluateWin 根据存活角色判定胜负
// mafiaAlive统计存活的mafia和don；其余存活角色计入平民方。
// 黑手党清零则平民胜；黑手党人数不少于平民且大于零则黑手党胜。
func EvaluateWin(players []models.SessionPlayer) WinResult {
	mafiaAlive := 0
	civilianAlive := 0

	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		if Role(p.Role).IsMafia() {
			mafiaAlive++
		} else {
			civilianAlive++
		}
	}

	if mafiaAlive == 0 {
		return WinCivilian
	}
	if mafiaAlive >= civilianAlive {
		return WinMafia
	}
	return WinOngoing
}

// TallyLeader 从计票结果中取出唯一的最高票目标
// 存在并列时返回(0, false)：平票不淘汰任何人
func TallyLeader(tally map[uint]int) (uint, bool) {
	var leader uint
	max := 0
	unique := false

	for target, count := range tally {
		switch {
		case count > max:
			leader = target
			max = count
			unique = true
		case count == max:
			unique = false
		}
	}

	if max == 0 {
		return 0, false
	}
	return leader, unique
}
