package domain

// Insights is the fixed narrative printed at the end of a run. The lines are
// static text and are not derived from the data.
var Insights = []string{
	"🧠 USA has the highest number of total cases.",
	"💉 India has seen a strong vaccination push after mid-2021.",
	"📈 Death rates vary across countries, influenced by healthcare infrastructure.",
	"📊 Visualizations show strong correlation between new cases and vaccinations.",
}
