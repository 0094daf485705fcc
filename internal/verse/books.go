package verse

// bookNames lists the 66 canonical book names in corpus order.
var bookNames = [66]string{
	"창세기", "출애굽기", "레위기", "민수기", "신명기",
	"여호수아", "사사기", "룻기", "사무엘상", "사무엘하",
	"열왕기상", "열왕기하", "역대상", "역대하", "에스라",
	"느헤미야", "에스더", "욥기", "시편", "잠언",
	"전도서", "아가", "이사야", "예레미야", "예레미야애가",
	"에스겔", "다니엘", "호세아", "요엘", "아모스",
	"오바댜", "요나", "미가", "나훔", "하박국",
	"스바냐", "학개", "스가랴", "말라기",
	"마태복음", "마가복음", "누가복음", "요한복음",
	"사도행전", "로마서", "고린도전서", "고린도후서",
	"갈라디아서", "에베소서", "빌립보서", "골로새서",
	"데살로니가전서", "데살로니가후서", "디모데전서", "디모데후서",
	"디도서", "빌레몬서", "히브리서", "야고보서",
	"베드로전서", "베드로후서", "요한일서", "요한이서",
	"요한삼서", "유다서", "요한계시록",
}

// bookAliases maps every accepted spoken form, including common STT
// mishearings, to a canonical book index. Canonical names themselves
// are added by the catalog builder and do not need to appear here.
var bookAliases = map[string]int{
	// Old Testament
	"창세": 0, "창색이": 0, "상세기": 0,
	"출애굽": 1, "출에굽기": 1,
	"레위": 2,
	"민수": 3,
	"신명": 4,
	"여호수아기": 5,
	"사사": 6,
	"룻": 7,
	"삼상": 8, "사무엘 상": 8,
	"삼하": 9, "사무엘 하": 9,
	"왕상": 10, "열왕기 상": 10,
	"왕하": 11, "열왕기 하": 11,
	"대상": 12, "역대 상": 12,
	"대하": 13, "역대 하": 13,
	"에즈라": 14,
	"느헤미아": 15,
	"에스더기": 16,
	"욥": 17,
	"시평": 18, "씨편": 18, "싯편": 18,
	"자면": 19, "잠원": 19,
	"전도": 20,
	"아가서": 21,
	"이사아": 22, "이사야서": 22,
	"예레미아": 23, "예레미야서": 23,
	"애가": 24,
	"에제키엘": 25,
	"다니엘서": 26,
	"호세아서": 27,
	"요엘서": 28,
	"아모스서": 29,
	"오바디아": 30,
	"요나서": 31,
	"미가서": 32,
	"나훔서": 33,
	"하바국": 34,
	"스바니아": 35,
	"학게": 36,
	"스가리아": 37,
	"말라키": 38,

	// New Testament
	"마태복": 39, "마태": 39, "마테복음": 39,
	"마가복": 40, "마가": 40,
	"누가복": 41, "누가": 41,
	"요한복": 42, "요한": 42, "요한복은": 42,
	"요한 보금": 42, "요한보금": 42, "요한 먹은": 42, "요한먹은": 42,
	"요한 버금": 42, "요한버금": 42, "요안복음": 42,
	"사도행": 43, "행전": 43,
	"로마": 44, "로마써": 44,
	"고전": 45, "고린도 전서": 45,
	"고후": 46, "고린도 후서": 46,
	"갈라디아": 47,
	"에베소": 48,
	"빌립보": 49, "필립보서": 49,
	"골로새": 50,
	"데전": 51, "데살로니가 전서": 51,
	"데후": 52, "데살로니가 후서": 52,
	"딤전": 53, "디모데 전서": 53,
	"딤후": 54, "디모데 후서": 54,
	"디도": 55,
	"빌레몬": 56,
	"히브리": 57,
	"야고보": 58,
	"벧전": 59, "베드로 전서": 59,
	"벧후": 60, "베드로 후서": 60,
	"요일": 61, "요한 일서": 61,
	"요이": 62, "요한 이서": 62,
	"요삼": 63, "요한 삼서": 63,
	"유다": 64,
	"계시록": 65, "요한 계시록": 65,
}
