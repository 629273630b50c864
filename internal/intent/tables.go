package intent

import "sportscast/pkg/model"

// Keyword tables are scanned in declaration order. When two entries
// score the same number of hits, the earlier one wins.

var domainKeywords = []struct {
	Domain   model.Domain
	Keywords []string
}{
	{model.DomainMotorsport, []string{"f1", "F1", "一级方程式", "赛车", "车手", "车队", "积分榜", "比赛结果", "排位赛"}},
	{model.DomainFootball, []string{"足球", "英超", "西甲", "德甲", "意甲", "法甲", "联赛", "积分榜", "比赛", "球队", "射手榜"}},
	{model.DomainBasketball, []string{"nba", "NBA", "篮球", "球队", "球员", "赛程", "湖人", "勇士", "凯尔特人", "库里", "詹姆斯", "杜兰特"}},
}

var intentKeywords = []struct {
	Intent   model.Intent
	Keywords []string
}{
	{model.IntentSchedule, []string{"赛程", "比赛安排", "日程", "时间表"}},
	{model.IntentStandings, []string{"积分榜", "排名", "排行榜", "榜单"}},
	{model.IntentResults, []string{"结果", "比分", "成绩"}},
	{model.IntentTeams, []string{"球队", "队伍", "车队"}},
	{model.IntentPlayers, []string{"球员", "车手", "选手", "名单", "阵容"}},
	{model.IntentToday, []string{"今天", "今日", "当天"}},
	{model.IntentLive, []string{"实时", "直播", "现场"}},
	{model.IntentTopScorers, []string{"射手榜", "射手", "进球榜", "得分榜"}},
	{model.IntentPlayerStats, []string{"数据", "统计", "表现"}},
}

// statKeywords switch a player mention from a roster lookup to a
// per-player statistics query.
var statKeywords = []string{"得分", "数据", "统计", "表现", "平均", "场均"}

type alias struct {
	CN string
	EN string
}

// basketballPlayers maps Chinese player mentions to the canonical
// English names the upstream APIs expect. Scanned in order, first hit
// wins.
var basketballPlayers = []alias{
	{"库里", "Stephen Curry"},
	{"斯蒂芬库里", "Stephen Curry"},
	{"詹姆斯", "LeBron James"},
	{"勒布朗詹姆斯", "LeBron James"},
	{"杜兰特", "Kevin Durant"},
	{"凯文杜兰特", "Kevin Durant"},
	{"字母哥", "Giannis Antetokounmpo"},
	{"安特托昆博", "Giannis Antetokounmpo"},
	{"东契奇", "Luka Doncic"},
	{"卢卡东契奇", "Luka Doncic"},
	{"塔图姆", "Jayson Tatum"},
	{"杰森塔图姆", "Jayson Tatum"},
	{"约基奇", "Nikola Jokic"},
	{"尼古拉约基奇", "Nikola Jokic"},
	{"恩比德", "Joel Embiid"},
	{"乔尔恩比德", "Joel Embiid"},
}

// basketballTeams maps Chinese team mentions to the short English
// team names.
var basketballTeams = []alias{
	{"湖人", "Lakers"},
	{"湖人队", "Lakers"},
	{"洛杉矶湖人", "Lakers"},
	{"勇士", "Warriors"},
	{"勇士队", "Warriors"},
	{"金州勇士", "Warriors"},
	{"凯尔特人", "Celtics"},
	{"凯尔特人队", "Celtics"},
	{"波士顿凯尔特人", "Celtics"},
	{"公牛", "Bulls"},
	{"公牛队", "Bulls"},
	{"芝加哥公牛", "Bulls"},
	{"热火", "Heat"},
	{"热火队", "Heat"},
	{"迈阿密热火", "Heat"},
	{"马刺", "Spurs"},
	{"马刺队", "Spurs"},
	{"圣安东尼奥马刺", "Spurs"},
	{"火箭", "Rockets"},
	{"火箭队", "Rockets"},
	{"休斯顿火箭", "Rockets"},
	{"雷霆", "Thunder"},
	{"雷霆队", "Thunder"},
	{"俄克拉荷马雷霆", "Thunder"},
	{"快船", "Clippers"},
	{"快船队", "Clippers"},
	{"洛杉矶快船", "Clippers"},
	{"尼克斯", "Knicks"},
	{"尼克斯队", "Knicks"},
	{"纽约尼克斯", "Knicks"},
	{"篮网", "Nets"},
	{"篮网队", "Nets"},
	{"布鲁克林篮网", "Nets"},
	{"76人", "76ers"},
	{"76人队", "76ers"},
	{"费城76人", "76ers"},
	{"雄鹿", "Bucks"},
	{"雄鹿队", "Bucks"},
	{"密尔沃基雄鹿", "Bucks"},
}

// footballLeagues maps Chinese league mentions to the competition IDs
// used by the football data provider.
var footballLeagues = []struct {
	CN string
	ID int
}{
	{"英超", 2021},
	{"西甲", 2014},
	{"德甲", 2002},
	{"意甲", 2019},
	{"法甲", 2015},
}
