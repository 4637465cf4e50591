package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/chatrank/internal/adapters/repository"
	"github.com/okian/chatrank/internal/domain/model"
	"github.com/okian/chatrank/internal/domain/types"
)

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatrank.yaml")
	body := "db_path: " + dbPath + "\nlog_format: json\nworker_count: 1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func seedDB(t *testing.T, dbPath string) {
	t.Helper()
	st, err := repository.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	day := func(d int) time.Time { return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC) }
	for _, e := range []model.Event{
		{EventID: "s1", Kind: model.KindSale, TeamID: "red", Worker: model.Worker{Name: "alice"}, Date: day(4), Amount: 2000, Rate: 0.1},
		{EventID: "s2", Kind: model.KindSale, TeamID: "blue", Worker: model.Worker{Name: "bob"}, Date: day(11), Amount: 1000, Rate: 0.1},
		{EventID: "h1", Kind: model.KindHours, TeamID: "blue", Worker: model.Worker{Name: "bob"}, Date: day(12), Amount: 8, Rate: 20},
		{EventID: "b1", Kind: model.KindBonus, TeamID: "red", Worker: model.Worker{Name: "alice"}, Date: day(1), Amount: 75},
	} {
		if err := st.Record(context.Background(), e); err != nil {
			t.Fatalf("seed %s: %v", e.EventID, err)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	convey.Convey("Given the version subcommand", t, func() {
		out, _, err := execute("version")

		convey.Convey("Then the build information is printed", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "chatrank version "+Version)
		})
	})
}

func TestLeaderboardCommand(t *testing.T) {
	convey.Convey("Given a seeded SQLite database", t, func() {
		dbPath := filepath.Join(t.TempDir(), "events.db")
		seedDB(t, dbPath)
		cfg := writeConfig(t, dbPath)

		convey.Convey("When printing the March 2024 leaderboard", func() {
			out, logs, err := execute("leaderboard", "--config", cfg, "--month", "3", "--year", "2024")

			convey.Convey("Then the ranked JSON is written to stdout", func() {
				convey.So(err, convey.ShouldBeNil)
				var lb types.Leaderboard
				convey.So(json.Unmarshal([]byte(out), &lb), convey.ShouldBeNil)
				convey.So(lb.Period, convey.ShouldEqual, "March 2024")
				convey.So(lb.ActiveChatters, convey.ShouldEqual, 2)
				convey.So(lb.TopChatters[0].Name, convey.ShouldEqual, "alice")
				convey.So(lb.TopChatters[0].Sales, convey.ShouldEqual, 275.0)
				convey.So(lb.TopChatters[1].Name, convey.ShouldEqual, "bob")
				convey.So(lb.TopChatters[1].Sales, convey.ShouldEqual, 260.0)
			})

			convey.Convey("And logs go to stderr", func() {
				convey.So(logs, convey.ShouldContainSubstring, "sqlite store opened")
			})
		})

		convey.Convey("When filtering by team", func() {
			out, _, err := execute("leaderboard", "-c", cfg, "--month", "3", "--year", "2024", "--team", "blue")
			convey.So(err, convey.ShouldBeNil)
			var lb types.Leaderboard
			convey.So(json.Unmarshal([]byte(out), &lb), convey.ShouldBeNil)
			convey.So(lb.ActiveChatters, convey.ShouldEqual, 1)
		})

		convey.Convey("When the flags are invalid", func() {
			_, _, err := execute("leaderboard", "-c", cfg, "--timeframe", "year")
			convey.So(err, convey.ShouldNotBeNil)

			_, _, err = execute("leaderboard", "-c", cfg, "--month", "13", "--year", "2024")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestTrajectoryCommand(t *testing.T) {
	convey.Convey("Given an empty database", t, func() {
		cfg := writeConfig(t, filepath.Join(t.TempDir(), "empty.db"))

		convey.Convey("When printing a monthly trajectory", func() {
			out, _, err := execute("trajectory", "alice", "-c", cfg, "--kind", "month", "-n", "3")

			convey.Convey("Then every month reports the sentinel rank", func() {
				convey.So(err, convey.ShouldBeNil)
				var points []types.RankPoint
				convey.So(json.Unmarshal([]byte(out), &points), convey.ShouldBeNil)
				convey.So(points, convey.ShouldHaveLength, 3)
				for _, p := range points {
					convey.So(p.Rank, convey.ShouldEqual, 1)
				}
			})
		})

		convey.Convey("When the chatter is missing", func() {
			_, _, err := execute("trajectory", "-c", cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestConfigErrors(t *testing.T) {
	convey.Convey("Given a config file that does not exist", t, func() {
		_, _, err := execute("leaderboard", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
		convey.So(err, convey.ShouldNotBeNil)
	})
}
