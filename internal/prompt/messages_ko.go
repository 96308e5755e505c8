package prompt

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Korean

	message.SetString(lang, KeyTurn, "현재 세션 멤버들: %[1]s\n\n"+
		"다음 플레이어의 차례입니다: $%[2]s$\n\n"+
		"이 플레이어가 행동할 차례입니다. 다른 플레이어들은 기다려주세요.\n\n"+
		"플레이어의 행동 후, ${Turn=PlayerName}으로 다음 플레이어의 차례를 설정해주세요. 멤버 목록에 있는 플레이어만 사용하세요.")
	message.SetString(lang, KeyChat, "현재 세션 멤버들: %[1]s\n\n"+
		"현재 %[2]s의 차례입니다.\n"+
		"당신은 %[3]s입니다.\n\n"+
		"이것은 일반 채팅입니다. 행동을 취하지 않으므로 게임을 진행하지 마세요.\n\n"+
		"플레이어의 행동 후, ${Turn=PlayerName}으로 다음 플레이어의 차례를 설정해주세요. 멤버 목록에 있는 플레이어만 사용하세요.")
	message.SetString(lang, KeyGameSetup, "새로운 TRPG 게임을 시작하려고 합니다. 세계는 다음과 같습니다: %[1]s\n\n"+
		"플레이어는 자유롭게 참가하고 떠날 수 있으니 이 점을 염두에 두세요.\n\n"+
		"첫 장면을 생생하게 묘사해주세요. 분위기를 설정하고, 주변 환경과 즉각적인 도전이나 기회, 지금 보고 듣고 느낄 수 있는 것을 포함해 플레이어가 상호작용할 수 있는 명확한 시작 상황을 제시해주세요.")
	message.SetString(lang, KeyBatchStats, "다음 TRPG 캐릭터들의 대표 스탯을 정해주세요: %[1]s\n\n"+
		"모든 캐릭터의 스탯을 다음 파이프 구분 형식으로 제공해주세요:\n"+
		"character|stat_name|value|description\n\n"+
		"지침:\n"+
		"- 각 캐릭터를 가장 잘 나타내는 스탯을 1-5개 생성하세요.\n"+
		"- 스탯 이름에 이모지를 사용하고, 같은 스탯에는 모든 캐릭터에서 같은 이모지를 사용하세요.\n"+
		"- 회복 가능한 스탯은 \"3/5\", 기본 능력치는 \"14\", 현재/최대 체력은 \"1/30\" 형식을 사용하세요.\n"+
		"- 직업이나 종족을 스탯으로 포함할 수 있습니다. 예: 🧙 마법사\n"+
		"- 모든 스탯 이름과 값은 한국어로 작성하세요.\n\n"+
		"데이터를 ${GeminiStats=...}로 감싸고 다른 내용은 반환하지 마세요.")
	message.SetString(lang, KeyJoin, "%[1]s님이 모험에 참가했습니다!")
	message.SetString(lang, KeyLeave, "%[1]s님이 모험을 떠났습니다.")
	message.SetString(lang, KeyWaiting, "대기 중")
	message.SetString(lang, KeyNoPlayers, "플레이어 없음")
}
