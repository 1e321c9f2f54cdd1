package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	service "github.com/okian/grudgematch/internal/app"
	"github.com/okian/grudgematch/internal/config"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/standings"
	"github.com/okian/grudgematch/internal/simulate"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == config.OutputJSON {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == config.OutputJSON {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case []model.Entity:
		o.printEntities(v)
	case playerDetail:
		o.printPlayerDetail(v)
	case gameDetail:
		o.printGameDetail(v)
	case nameCheck:
		o.printNameCheck(v)
	case model.MatchRecord:
		o.printMatches([]model.MatchRecord{v})
	case []model.MatchRecord:
		o.printMatches(v)
	case []standings.PlayerStanding:
		o.printPlayerStandings(v)
	case []standings.GameStanding:
		o.printGameStandings(v)
	case service.RebuildReport:
		o.printRebuildReport(v)
	case service.VerifyReport:
		o.printVerifyReport(v)
	case service.ImportReport:
		o.printImportReport(v)
	case *simulate.Report:
		o.printSimulateReport(v)
	case versionInfo:
		fmt.Fprintf(o.w, "grudge %s (commit %s, built %s)\n", v.Version, v.Commit, v.Date)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// playerDetail is a player with its derived stats.
type playerDetail struct {
	model.Entity
	Stats model.Stats `json:"stats"`
}

// gameDetail is a game with its derived stats.
type gameDetail struct {
	model.Entity
	Stats model.GameStats `json:"stats"`
}

// nameCheck is the outcome of a name validation.
type nameCheck struct {
	Kind  model.Kind `json:"kind"`
	Name  string     `json:"name"`
	Valid bool       `json:"valid"`
	Code  string     `json:"code"`
}

func (o *Output) table() *tabwriter.Writer {
	return tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
}

func (o *Output) printEntities(entities []model.Entity) {
	if len(entities) == 0 {
		fmt.Fprintln(o.w, "No entries.")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "NAME\tSTATE\tID")
	for _, e := range entities {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.State(), e.ID)
	}
	_ = tw.Flush()
}

func (o *Output) printPlayerDetail(p playerDetail) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "State: %s\n", p.State())
	fmt.Fprintf(o.w, "Record: %d-%d in %d matches\n", p.Stats.Wins, p.Stats.Losses(), p.Stats.Matches)
	fmt.Fprintf(o.w, "Last played: %s\n", model.FormatDate(p.Stats.LastPlayed))
}

func (o *Output) printGameDetail(g gameDetail) {
	fmt.Fprintf(o.w, "Game: %s (%s)\n", g.Name, g.ID)
	fmt.Fprintf(o.w, "State: %s\n", g.State())
	if g.Info != nil {
		if g.Info.Developer != "" {
			fmt.Fprintf(o.w, "Developer: %s\n", g.Info.Developer)
		}
		if g.Info.Platform != "" {
			fmt.Fprintf(o.w, "Platform: %s\n", g.Info.Platform)
		}
		if g.Info.ReleaseYear != 0 {
			fmt.Fprintf(o.w, "Released: %d\n", g.Info.ReleaseYear)
		}
	}
	fmt.Fprintf(o.w, "Matches: %d\n", g.Stats.Matches)
	fmt.Fprintf(o.w, "Last played: %s\n", model.FormatDate(g.Stats.LastPlayed))
}

func (o *Output) printNameCheck(c nameCheck) {
	if c.Valid {
		fmt.Fprintf(o.w, "%s name %q is available\n", c.Kind, c.Name)
		return
	}
	fmt.Fprintf(o.w, "%s name %q is rejected: %s\n", c.Kind, c.Name, c.Code)
}

func (o *Output) printMatches(records []model.MatchRecord) {
	if len(records) == 0 {
		fmt.Fprintln(o.w, "No matches.")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "DATE\tGAME\tP1\tP2\tWINNER")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			model.FormatDate(r.Date), r.Game.Name, r.PlayerOne.Name, r.PlayerTwo.Name, r.Winner().Name)
	}
	_ = tw.Flush()
}

func (o *Output) printPlayerStandings(rows []standings.PlayerStanding) {
	if len(rows) == 0 {
		fmt.Fprintln(o.w, "No players.")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "RANK\tPLAYER\tW\tL\tMATCHES\tLAST PLAYED")
	for _, r := range rows {
		rank := fmt.Sprint(r.Rank)
		if r.Unranked {
			rank = "-"
		}
		name := r.Name
		if !r.Active {
			name += " (inactive)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			rank, name, r.Wins, r.Losses, r.Matches, model.FormatDate(r.LastPlayed))
	}
	_ = tw.Flush()
}

func (o *Output) printGameStandings(rows []standings.GameStanding) {
	if len(rows) == 0 {
		fmt.Fprintln(o.w, "No games.")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "RANK\tGAME\tMATCHES\tLAST PLAYED")
	for _, r := range rows {
		name := r.Name
		if !r.Active {
			name += " (inactive)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.Rank, name, r.Matches, model.FormatDate(r.LastPlayed))
	}
	_ = tw.Flush()
}

func (o *Output) printEntityNames(label string, entities []model.Entity) {
	if len(entities) == 0 {
		return
	}
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = fmt.Sprintf("%s %s", e.Kind, e.Name)
	}
	fmt.Fprintf(o.w, "%s: %s\n", label, strings.Join(names, ", "))
}

func (o *Output) printRebuildReport(r service.RebuildReport) {
	fmt.Fprintf(o.w, "Rebuilt from %d matches\n", r.Records)
	o.printEntityNames("Restored", r.Restored)
	o.printEntityNames("Merged", r.Merged)
	if r.Changed {
		fmt.Fprintf(o.w, "Standings written to %s\n", r.Snapshot)
	} else {
		fmt.Fprintf(o.w, "Standings in %s already up to date\n", r.Snapshot)
	}
}

func (o *Output) printVerifyReport(r service.VerifyReport) {
	switch {
	case r.Missing:
		fmt.Fprintf(o.w, "No standings at %s; run rebuild\n", r.Snapshot)
	case r.Consistent():
		fmt.Fprintf(o.w, "Standings consistent with %d matches\n", r.Records)
	default:
		fmt.Fprintf(o.w, "Standings differ from the ledger (%d):\n", len(r.Drift))
		for _, d := range r.Drift {
			fmt.Fprintf(o.w, "  - %s\n", d)
		}
	}
}

func (o *Output) printImportReport(r service.ImportReport) {
	fmt.Fprintf(o.w, "Imported %d of %d rows\n", r.Appended, r.Rows)
	for _, e := range r.Created {
		fmt.Fprintf(o.w, "  + %s %s\n", e.Kind, e.Name)
	}
}

func (o *Output) printSimulateReport(r *simulate.Report) {
	tw := o.table()
	fmt.Fprintf(tw, "Seed:\t%d\n", r.Seed)
	fmt.Fprintf(tw, "Players:\t%d\n", r.PlayersCreated)
	fmt.Fprintf(tw, "Games:\t%d\n", r.GamesCreated)
	fmt.Fprintf(tw, "Matches:\t%d\n", r.MatchesRecorded)
	fmt.Fprintf(tw, "Restored:\t%d\n", r.Restored)
	fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration)
	fmt.Fprintf(tw, "Consistent:\t%t\n", r.Consistent)
	_ = tw.Flush()
	for _, m := range r.Mismatches {
		fmt.Fprintf(o.w, "  - %s\n", m)
	}
}
