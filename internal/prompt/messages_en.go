package prompt

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, KeyTurn, "Current session members: %[1]s\n\n"+
		"It's now the turn of: $%[2]s$\n\n"+
		"This player should take their action now. Other players please wait.\n\n"+
		"After the player's action, please respond with ${Turn=PlayerName} to set the next player's turn. "+
		"Only use players who are in the member list.")
	message.SetString(lang, KeyChat, "Current session members: %[1]s\n\n"+
		"It's currently %[2]s's turn.\n"+
		"You are %[3]s.\n\n"+
		"This is general chat. Do not proceed with the game as no action is being taken.\n\n"+
		"After the player's action, please respond with ${Turn=PlayerName} to set the next player's turn. "+
		"Only use players who are in the member list.")
	message.SetString(lang, KeyGameSetup, "We are about to play a new tabletop RPG. The world is described as: %[1]s\n\n"+
		"Players can join and leave freely, so keep this in mind.\n\n"+
		"Describe the opening scene vividly. Set the atmosphere and give a clear starting situation the players can interact with: "+
		"the surroundings, an immediate challenge or opportunity, and what can be seen, heard and felt right now.")
	message.SetString(lang, KeyBatchStats, "Determine representative stats for these tabletop RPG characters: %[1]s\n\n"+
		"Provide the stats for every character in this pipe-separated format:\n"+
		"character|stat_name|value|description\n\n"+
		"Guidelines:\n"+
		"- Give each character 1-5 stats that describe them best.\n"+
		"- Use emoji in stat names for visual clarity, and the same emoji for the same stat across characters.\n"+
		"- Use \"3/5\" for renewable stats such as mana or stamina, \"14\" for base attributes, and \"1/30\" for current/max health.\n"+
		"- Class or race may be included as a stat, for example 🧙 Wizard.\n\n"+
		"Wrap the data in ${GeminiStats=...} and return nothing else.")
	message.SetString(lang, KeyJoin, "%[1]s has joined the adventure!")
	message.SetString(lang, KeyLeave, "%[1]s has left the adventure.")
	message.SetString(lang, KeyWaiting, "waiting")
	message.SetString(lang, KeyNoPlayers, "No players")
}
