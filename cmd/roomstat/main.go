// Command roomstat prints the room activity catalog kept by the server
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/manpreetbhatti/inkboard/backend/internal/db"
	"github.com/manpreetbhatti/inkboard/backend/internal/discovery"
)

const (
	recentWindow = 5 * time.Minute
	idleWindow   = 24 * time.Hour
)

func main() {
	dbPath := flag.String("db", "./data/inkboard.db", "Path to the inkboard catalog")
	limit := flag.Int("limit", 50, "Maximum rooms to list")
	discover := flag.Duration("discover", 0, "Browse the local network for servers for this long instead of reading the catalog")
	flag.Parse()

	if *discover > 0 {
		if err := printServers(os.Stdout, *discover); err != nil {
			log.Fatal(err)
		}
		return
	}

	database, err := db.New(*dbPath)
	if err != nil {
		log.Fatal("Error while opening catalog: ", err)
	}
	defer database.Close()

	activity, err := database.ListActivity(*limit, 0)
	if err != nil {
		log.Fatal(err)
	}
	printActivity(os.Stdout, activity, time.Now())
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printActivity(w io.Writer, activity []db.Activity, now time.Time) {
	table := newTable(w, []string{"Room", "Status", "Last Active", "Joins", "Peak", "Strokes", "Undos", "Redos", "Clears"})
	for _, a := range activity {
		table.Append([]string{
			a.RoomID,
			status(a.LastActive, now),
			a.LastActive.Local().Format(time.DateTime),
			strconv.Itoa(a.Joins),
			strconv.Itoa(a.PeakParticipants),
			strconv.Itoa(a.Strokes),
			strconv.Itoa(a.Undos),
			strconv.Itoa(a.Redos),
			strconv.Itoa(a.Clears),
		})
	}
	table.Render()
}

// status buckets a room by how recently it saw activity
func status(last, now time.Time) string {
	switch age := now.Sub(last); {
	case age <= recentWindow:
		return color.New(color.FgGreen).Render("recent")
	case age <= idleWindow:
		return color.New(color.FgYellow).Render("idle")
	default:
		return color.New(color.FgGray).Render("stale")
	}
}

func printServers(w io.Writer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	servers, err := discovery.Browse(ctx, timeout)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Fprintln(w, "no inkboard servers found")
		return nil
	}

	table := newTable(w, []string{"Instance", "Address"})
	for _, s := range servers {
		table.Append([]string{s.Instance, s.Addr})
	}
	table.Render()
	return nil
}
