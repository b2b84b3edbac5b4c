package openrouter

import (
	"fmt"
	"strconv"
	"strings"
)

const nameAnalysisSystem = "You are an expert at parsing TV episode filenames. " +
	"Extract season and episode numbers accurately. Respond only with valid JSON."

func nameAnalysisPrompt(filename, seriesName string, season, episode int) string {
	episodeStr := "Not detected"
	if episode > 0 {
		episodeStr = strconv.Itoa(episode)
	}

	return fmt.Sprintf(`Analyze this TV episode filename and extract the correct season and episode numbers.

Filename: %s
Series: %s

Regex initially found:
- Season: %d
- Episode: %s

Common patterns in filenames:
- S01E01 or S01E01-E02 (Season 1, Episode 1 or 1-2)
- S01 EP01 or S01 EP (01-05) (Season 1, Episode 1 or batch)
- 1x01 (Season 1, Episode 1)
- EP01 alone (defaults to Season 1, Episode 1)
- Episode numbers in parentheses like (01), (02)

Special cases:
- "EP" alone might mean all episodes or a batch
- Numbers like 01-05 mean episodes 1 through 5
- Sometimes episode is written as "Ep.1" or "Epi 01"

Return a JSON object with this exact format:
{
    "season": <integer season number>,
    "episode": <integer episode number or null if batch/no specific episode>,
    "confidence": <float 0.0 to 1.0>,
    "reasoning": "<brief explanation of your analysis>"
}

Only return the JSON, nothing else.`, filename, seriesName, season, episodeStr)
}

func classifyPrompt(expectedTitle string) string {
	return fmt.Sprintf(`Analyze this TV series poster and extract specific details.

Expected series: '%s'

Your tasks:
1. Read all visible text on the poster carefully
2. Extract actor names (starring, featuring, with)
3. Extract director names (directed by, created by)
4. Extract network/platform names (Netflix, Disney+, HBO, etc.)
5. Identify the country of origin from names and scripts:
   - India = Indian names, Hindi/Tamil/Telugu text
   - South Korea = Hangul text, Korean names
   - China = Chinese characters
   - Japan = Japanese characters/names
   - Thailand = Thai text/names
6. Determine whether this is a web series or a film
7. Read the title and year as printed on the poster
8. Provide the TMDB ID and IMDb ID if you recognize this series

Important:
- Extract actual names you see on the poster
- Look for non-Latin scripts to identify the origin

Respond in JSON format:
{
  "is_web_series": true,
  "country": "India/South Korea/China/Japan/Thailand/Other",
  "title": "title as printed on the poster",
  "year": 2024,
  "actors_on_poster": ["name1", "name2"],
  "directors_on_poster": ["name1"],
  "networks": ["network1"],
  "tmdb_id": 123456,
  "imdb_id": "tt1234567",
  "confidence": "high/medium/low",
  "reasoning": "List the names you found and why you picked the country"
}
Use null for tmdb_id and imdb_id when you do not know them.`, expectedTitle)
}

func identifyPrompt(seriesName string) string {
	return fmt.Sprintf(`Analyze this TV series poster and identify the show.

Series name hint: %s

Your task:
1. Read any text visible on the poster (title, actors, network)
2. Identify the TV series
3. Based on your knowledge, provide the TMDB ID and IMDb ID

You MUST provide your best estimate for the IDs based on the series name.

Return ONLY valid JSON:
{
    "series_name": "Official series name",
    "tmdb_id": 295241,
    "imdb_id": "tt37356230",
    "confidence": "high/medium/low",
    "reasoning": "Brief explanation"
}`, seriesName)
}

func selectPrompt(analysis *PosterAnalysis, candidates []Candidate) string {
	var b strings.Builder

	b.WriteString("Select which TMDB TV series candidate matches the poster by comparing specific details.\n\n")
	b.WriteString("POSTER ANALYSIS:\n")
	fmt.Fprintf(&b, "Country: %s\n", analysis.Country)
	fmt.Fprintf(&b, "Actors on poster: %s\n", strings.Join(firstN(analysis.ActorsOnPoster, 5), ", "))
	fmt.Fprintf(&b, "Directors on poster: %s\n", strings.Join(firstN(analysis.DirectorsOnPoster, 3), ", "))
	fmt.Fprintf(&b, "Networks: %s\n", strings.Join(firstN(analysis.Networks, 3), ", "))
	fmt.Fprintf(&b, "Reasoning: %s\n\n", truncate(analysis.Reasoning, 200))

	b.WriteString("CANDIDATE TV SERIES FROM TMDB:\n\n")
	for i, cand := range candidates {
		fmt.Fprintf(&b, "=== CANDIDATE %d ===\n", i+1)
		fmt.Fprintf(&b, "TMDB ID: %d\n", cand.TMDBID)
		fmt.Fprintf(&b, "Name: %s\n", cand.Title)
		fmt.Fprintf(&b, "Original Name: %s\n", cand.OriginalTitle)
		fmt.Fprintf(&b, "Overview: %s\n\n", truncate(cand.Overview, 100))
	}

	b.WriteString(`INSTRUCTIONS:
1. Match the actor, director and network names from the poster analysis with each candidate
2. Match the country of origin
3. Select the candidate whose name, overview or network matches what the poster showed

Respond with ONLY the number (1, 2, 3, etc.) and which specific detail matched.
Format: NUMBER: [series name] - [matching detail]
If no candidate matches, respond: NO MATCH`)

	return b.String()
}

func groupSeasonsPrompt(seriesName string, torrents []TorrentName) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing torrent names for a TV series to determine which SEASON each torrent belongs to.\n\n")
	fmt.Fprintf(&b, "Series Name: %s\n\n", seriesName)
	b.WriteString("Analyze these torrent names and determine the SEASON NUMBER for each:\n")
	for i, t := range torrents {
		fmt.Fprintf(&b, "%d. ID:%d - %s\n", i+1, t.ID, truncate(t.Name, 80))
	}

	b.WriteString(`
For torrents that don't explicitly mention a season, use your knowledge:
- Check if episode numbers indicate the season (EP01-10 is usually Season 1)
- Look for year clues in the name
- Consider the series context

Return ONLY valid JSON like:
{
  "1": [1, 2, 3],
  "2": [4, 5],
  "unknown": [6]
}

Where keys are season numbers (as strings) and values are lists of torrent IDs from the list above.
Use "unknown" for torrents you cannot determine.`)

	return b.String()
}
