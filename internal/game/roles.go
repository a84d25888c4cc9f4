package game

import (
	"math/rand"

	"github.com/wfunc/mafia-game/internal/models"
)

// Role 游戏角色
type Role string

const (
	RoleMafia      Role = "mafia"      // 黑手党
	RoleDon        Role = "don"        // 教父
	RoleSheriff    Role = "sheriff"    // 警长
	RoleProstitute Role = "prostitute" // 妓女
	RoleDoctor     Role = "doctor"     // 医生
	RoleCivilian   Role = "civilian"   // 平民
)

// String 返回角色的字符串表示
func (r Role) String() string {
	return string(r)
}

// IsMafia 是否属于黑手党阵营
func (r Role) IsMafia() bool {
	return r == RoleMafia || r == RoleDon
}

// RoleUnknown 对其他玩家隐藏角色时的占位值
const RoleUnknown = "unknown"

// ComputeRoleCounts 按玩家数量计算角色分布
// 少于4人返回空映射；平民数量为扣除特殊角色后的余数
func ComputeRoleCounts(playerCount int) map[Role]int {
	if playerCount < 4 {
		return map[Role]int{}
	}

	counts := map[Role]int{
		RoleMafia:    1,
		RoleDoctor:   1,
		RoleCivilian: playerCount - 2,
	}

	if playerCount >= 6 {
		counts[RoleSheriff] = 1
		counts[RoleCivilian] = playerCount - 3
	}
	if playerCount >= 8 {
		counts[RoleMafia] = 2
		counts[RoleCivilian] = playerCount - 4
	}
	if playerCount >= 10 {
		counts[RoleDon] = 1
		counts[RoleCivilian] = playerCount - 5
	}
	if playerCount >= 12 {
		counts[RoleMafia] = 3
		counts[RoleCivilian] = playerCount - 6
	}
	if playerCount >= 14 {
		counts[RoleProstitute] = 1
		counts[RoleCivilian] = playerCount - 7
	}
	if playerCount >= 16 {
		counts[RoleMafia] = 4
		counts[RoleCivilian] = playerCount - 8
	}

	return counts
}

// roleOrder 构建角色列表时的固定遍历顺序，保证洗牌前的列表可复现
var roleOrder = []Role{RoleMafia, RoleDon, RoleSheriff, RoleProstitute, RoleDoctor, RoleCivilian}

// AssignRoles 为玩家分配角色
// 按ComputeRoleCounts构建角色列表，均匀洗牌后按加入顺序逐一分配；
// 超出角色列表的玩家兜底为平民。洗牌只需公平性，不需要密码学强度。
func AssignRoles(players []models.RoomPlayer) []models.SessionPlayer {
	counts := ComputeRoleCounts(len(players))

	roles := make([]Role, 0, len(players))
	for _, role := range roleOrder {
		for i := 0; i < counts[role]; i++ {
			roles = append(roles, role)
		}
	}

	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	assigned := make([]models.SessionPlayer, 0, len(players))
	for i, p := range players {
		role := RoleCivilian
		if i < len(roles) {
			role = roles[i]
		}
		assigned = append(assigned, models.SessionPlayer{
			UserID:   p.UserID,
			UserName: p.UserName,
			Role:     role.String(),
			IsAlive:  true,
		})
	}

	return assigned
}
