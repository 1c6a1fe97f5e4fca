package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"navd/internal/config"
	"navd/internal/costmap"
	"navd/internal/display"
	"navd/internal/executor"
	"navd/internal/geo"
	"navd/internal/listener"
	"navd/internal/logger"
	"navd/internal/mapsource"
	"navd/internal/planner"
	"navd/internal/supervisor"
	"navd/internal/transform"
	"navd/internal/viz"
)

var cfg *config.Config
var scenarioFlag string

var rootCmd = &cobra.Command{
	Use:   "navd",
	Short: "Navigation mission supervisor console",
	Long: `Runs the navigation mission supervisor against a simulated robot.
Goals typed at the console are planned on the scenario's occupancy grid and
driven through the simulated path follower.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scenarioFlag != "" {
			cfg.Scenario = scenarioFlag
		}
		return runConsole()
	},
}

func init() {
	rootCmd.Flags().StringVar(&scenarioFlag, "scenario", "", "scenario YAML file (overrides config)")
}

func Execute(c *config.Config) {
	cfg = c
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runConsole() error {
	if cfg.Scenario == "" {
		return fmt.Errorf("no scenario configured (set scenario: in navd.yaml, NAVD_SCENARIO, or --scenario)")
	}
	sc, err := mapsource.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	tree := transform.NewStaticTree(sc.Frame, cfg.RobotFrame)
	for name, p := range sc.Frames {
		tree.SetFrame(name, p.Geo())
	}
	tree.SetRobotPose(sc.Start.Geo())

	window := mapsource.NewWindow(cfg.LocalWindow, cfg.FootprintRadius)
	window.SetSource(sc.Grid())

	motion := executor.NewSim()
	motion.SetProgressSink(tree.SetRobotPose)

	engine := planner.NewCombined(planner.Options{
		GoalTolerance:   cfg.GoalTolerance,
		WaypointSpacing: cfg.WaypointSpacing,
		LocalHorizon:    cfg.LocalHorizon,
	})

	updates := viz.NewChannel(64)
	sup := supervisor.New(supervisor.Config{
		GlobalFrame:         cfg.GlobalFrame,
		TickPeriod:          cfg.TickPeriod(),
		ForceReplanInterval: cfg.ForceReplanInterval(),
		ReadyTimeout:        cfg.ReadyTimeout(),
		Params: executor.FollowParams{
			TargetSpeed:       cfg.TargetSpeed,
			PositionTolerance: cfg.PositionTolerance,
		},
	}, tree, engine, motion, window, updates)

	if err := listener.Init(); err != nil {
		return fmt.Errorf("init terminal input: %w", err)
	}
	defer listener.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sup.Run(ctx) })
	g.Go(func() error {
		err := mapsource.Watch(ctx, cfg.Scenario, func(grid *costmap.Grid, frame string) {
			window.SetSource(grid.Clone())
			sup.MapUpdate(grid, frame)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	go drainResults(sup)
	go drainUpdates(updates)

	sup.MapUpdate(sc.Grid(), sc.Frame)
	motion.MarkReady()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nGoodbye!")
		os.Exit(0)
	}()

	listener.AsyncPrintln(fmt.Sprintf("Scenario %s loaded (%dx%d @ %.2f m/cell).",
		cfg.Scenario, sc.Width, sc.Height, sc.Resolution))
	listener.AsyncPrintln("Commands: goal <x> <y> [heading] [frame] | cancel | status | pose | exit")

	for {
		line := listener.GetInput()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			stop()
			_ = g.Wait()
			return nil
		case "goal":
			handleGoalCommand(sup, tree, fields[1:])
		case "cancel":
			sup.Cancel()
		case "status":
			state, m := sup.Status()
			if m == nil {
				listener.AsyncPrintln(fmt.Sprintf("State: %s", state))
			} else {
				listener.AsyncPrintln(fmt.Sprintf("State: %s  mission %s -> (%.2f, %.2f)",
					state, m.ID, m.Goal.X, m.Goal.Y))
			}
		case "pose":
			p := tree.RobotPose()
			listener.AsyncPrintln(fmt.Sprintf("Robot at (%.2f, %.2f) @ %.2f rad", p.X, p.Y, p.Heading))
		case "help":
			listener.AsyncPrintln("Commands: goal <x> <y> [heading] [frame] | cancel | status | pose | exit")
		default:
			listener.AsyncPrintln(fmt.Sprintf("Unknown command %q (try 'help').", fields[0]))
		}
	}
}

func handleGoalCommand(sup *supervisor.Supervisor, tree *transform.StaticTree, args []string) {
	if len(args) < 2 {
		listener.AsyncPrintln("Usage: goal <x> <y> [heading] [frame]")
		return
	}
	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		listener.AsyncPrintln("Goal coordinates must be numbers.")
		return
	}
	heading := 0.0
	if len(args) >= 3 {
		h, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			listener.AsyncPrintln("Heading must be a number (radians).")
			return
		}
		heading = h
	}
	frame := cfg.GlobalFrame
	if len(args) >= 4 {
		frame = args[3]
	}

	if state, m := sup.Status(); state == supervisor.StateActive && m != nil {
		if !listener.AskYesNo(fmt.Sprintf("Mission %s is active. Preempt it?", m.ID)) {
			listener.AsyncPrintln("Goal dropped.")
			return
		}
	}

	logger.Log.Printf("[Console] Goal request (%.2f, %.2f, %.2f) in %q", x, y, heading, frame)
	sup.GoalRequest(geo.Pose{X: x, Y: y, Heading: heading}, frame)
}

func drainResults(sup *supervisor.Supervisor) {
	for res := range sup.Results() {
		listener.AsyncPrintln(display.FormatMissionResult(res))
	}
}

func drainUpdates(updates *viz.Channel) {
	for u := range updates.C {
		switch u.Kind {
		case viz.KindPath, viz.KindEmptyPath:
			listener.AsyncPrintln(display.FormatPath(u.Path, u.Frame))
		case viz.KindWaypoints:
			listener.AsyncPrintln(display.FormatWaypoints(u.Waypoints))
		}
	}
}
