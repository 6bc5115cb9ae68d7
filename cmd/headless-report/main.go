package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"flashpoint/internal/config"
	"flashpoint/internal/stats"
	"flashpoint/internal/util"
	"flashpoint/pkg/ai"
	"flashpoint/pkg/core"
)

type runStats struct {
	runIndex int
	seed     int64

	steps      int
	outcome    core.Outcome
	rescued    int
	pois       int
	explosions int
	peakFire   int
	finalFire  int
	finalSmoke int
	wallsLeft  int
	wallsTotal int

	firstRescueStep    int
	firstExplosionStep int

	actions        int
	failedActions  int
	falseAlarms    int
	extinguished   int
	rescuerTurns   int
	extinguishTurn int
}

type reportOptions struct {
	runs         int
	steps        int
	seedBase     int64
	seedStep     int64
	scenarioPath string
	dbPath       string
	policy       ai.Config
}

func parseFlags(args []string) (reportOptions, error) {
	var opts reportOptions
	fs := flag.NewFlagSet("headless-report", flag.ContinueOnError)
	fs.IntVar(&opts.runs, "runs", 5, "number of headless simulation runs")
	fs.IntVar(&opts.steps, "steps", 200, "maximum steps per run")
	fs.Int64Var(&opts.seedBase, "seed-base", 42, "base RNG seed for run 1")
	fs.Int64Var(&opts.seedStep, "seed-step", 1, "seed increment between runs")
	fs.StringVar(&opts.scenarioPath, "config", "", "scenario YAML file")
	fs.StringVar(&opts.dbPath, "db", "", "optional SQLite file for per-step statistics")
	fs.IntVar(&opts.policy.Rescuers, "rescuers", ai.DefaultConfig.Rescuers, "rescuers chosen at each role assignment")
	fs.BoolVar(&opts.policy.ScoreCarriedPOIs, "score-carried", ai.DefaultConfig.ScoreCarriedPOIs, "also count carried POIs when scoring rescuers")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.runs <= 0 {
		return opts, fmt.Errorf("-runs must be > 0")
	}
	if opts.steps <= 0 {
		return opts, fmt.Errorf("-steps must be > 0")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(2)
	}
	runs, steps, seedBase, seedStep := opts.runs, opts.steps, opts.seedBase, opts.seedStep
	policy := opts.policy

	scenario, err := config.LoadScenario(opts.scenarioPath)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	var rec stats.Recorder = stats.Nop{}
	runOffset := 0
	if opts.dbPath != "" {
		db, err := stats.OpenSQLite(opts.dbPath)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		defer db.Close()
		next, err := db.NextRun(context.Background())
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		runOffset = next - 1
		rec = db
	}

	fmt.Printf("=== Headless Flash Point Report ===\n")
	fmt.Printf("board=%dx%d firefighters=%d pois=%d runs=%d steps=%d seed_base=%d seed_step=%d\n\n",
		scenario.Width, scenario.Height, scenario.Firefighters, scenario.POIs, runs, steps, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		rs, err := runScenario(i+1, runOffset+i+1, seed, steps, scenario, policy, rec)
		if err != nil {
			fmt.Printf("error: run %d: %v\n", i+1, err)
			return
		}
		all = append(all, rs)
		printRun(rs)
	}

	printAggregate(all)
}

func runScenario(runIndex, recordRun int, seed int64, maxSteps int, cfg core.Config, policy ai.Config, rec stats.Recorder) (runStats, error) {
	sim, err := core.NewSimulation(cfg, util.New(seed), ai.NewController(policy))
	if err != nil {
		return runStats{}, err
	}
	ctx := context.Background()
	record := func() {
		model, agents := stats.Collect(recordRun, sim.Snapshot())
		if err := rec.Record(ctx, model, agents); err != nil {
			log.Printf("记录第 %d 步失败: %v", model.Step, err)
		}
	}

	rs := runStats{
		runIndex:           runIndex,
		seed:               seed,
		pois:               sim.POIs.Len(),
		wallsTotal:         sim.Walls.Len(),
		firstRescueStep:    -1,
		firstExplosionStep: -1,
		peakFire:           sim.Stats().FireCells,
	}
	record()

	for sim.Outcome() == core.OutcomeOngoing && sim.StepIndex < maxSteps {
		report := sim.Step()
		record()
		accumulate(&rs, report)
	}

	st := sim.Stats()
	rs.steps = st.Step
	rs.outcome = sim.Outcome()
	rs.rescued = st.RescuedPOIs
	rs.explosions = st.ExplosionCount
	rs.finalFire = st.FireCells
	rs.finalSmoke = st.SmokeCells
	rs.wallsLeft = st.IntactWalls
	return rs, nil
}

// accumulate 把一步的结果计入统计
func accumulate(rs *runStats, report core.StepReport) {
	if report.Stats.FireCells > rs.peakFire {
		rs.peakFire = report.Stats.FireCells
	}
	if rs.firstExplosionStep < 0 && len(report.Explosions) > 0 {
		rs.firstExplosionStep = report.Step
	}
	for _, a := range report.Actions {
		rs.actions++
		if !a.Success {
			rs.failedActions++
		}
		if a.Detail == core.DetailFalseAlarm {
			rs.falseAlarms++
		}
		switch a.Action {
		case core.ActionExtinguish:
			if a.Success {
				rs.extinguished++
			}
		case core.ActionDrop:
			if a.Success && rs.firstRescueStep < 0 {
				rs.firstRescueStep = report.Step
			}
		}
		switch a.Role {
		case core.RoleRescuer:
			rs.rescuerTurns++
		case core.RoleExtinguisher:
			rs.extinguishTurn++
		}
	}
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("outcome=%s steps=%d rescued=%d/%d explosions=%d\n", rs.outcome, rs.steps, rs.rescued, rs.pois, rs.explosions)
	fmt.Printf("fire: peak=%d final=%d smoke_final=%d walls_intact=%d/%d\n", rs.peakFire, rs.finalFire, rs.finalSmoke, rs.wallsLeft, rs.wallsTotal)
	fmt.Printf("phase_markers: first_rescue=%d first_explosion=%d\n", rs.firstRescueStep, rs.firstExplosionStep)
	fmt.Printf("actions: total=%d failed=%d false_alarms=%d extinguished=%d rescuer=%d fire_fighter=%d\n\n",
		rs.actions, rs.failedActions, rs.falseAlarms, rs.extinguished, rs.rescuerTurns, rs.extinguishTurn)
}

type aggregate struct {
	victories, defeats, ongoing int
	avgSteps, avgRescued        float64
	avgExplosions, avgPeakFire  float64
	rescueRate                  float64
}

func summarize(all []runStats) aggregate {
	var agg aggregate
	totalSteps, totalRescued, totalPOIs, totalExplosions, totalPeak := 0, 0, 0, 0, 0
	for _, rs := range all {
		switch rs.outcome {
		case core.OutcomeVictory:
			agg.victories++
		case core.OutcomeDefeat:
			agg.defeats++
		default:
			agg.ongoing++
		}
		totalSteps += rs.steps
		totalRescued += rs.rescued
		totalPOIs += rs.pois
		totalExplosions += rs.explosions
		totalPeak += rs.peakFire
	}
	agg.avgSteps = avg(totalSteps, len(all))
	agg.avgRescued = avg(totalRescued, len(all))
	agg.avgExplosions = avg(totalExplosions, len(all))
	agg.avgPeakFire = avg(totalPeak, len(all))
	agg.rescueRate = avg(totalRescued, totalPOIs)
	return agg
}

func printAggregate(all []runStats) {
	agg := summarize(all)
	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d victory=%d defeat=%d unfinished=%d\n", len(all), agg.victories, agg.defeats, agg.ongoing)
	fmt.Printf("avg_per_run: steps=%.1f rescued=%.2f explosions=%.2f peak_fire=%.1f\n",
		agg.avgSteps, agg.avgRescued, agg.avgExplosions, agg.avgPeakFire)
	fmt.Printf("rescue_rate=%.2f\n", agg.rescueRate)
}

func avg(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}
