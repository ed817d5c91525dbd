// Package harness replays scripted play sessions against the game engines.
//
// A scenario drives one game on a virtual clock, so countdowns, settle
// delays and auto-advance timers fire exactly when the script advances
// time. Every step records a frame with the observable game state; the
// frames form a trace that is compared with a golden file.
//
// # Scenario Format
//
//	name: match_two_parts
//	description: "Part 1 completes, part 2 times out"
//	game: match            # match | quiz
//	seed: 7                # card shuffle seed
//	player: Ann            # optional; records the finished game
//	config:
//	  pairs: 2
//	  moves: 5
//	  seconds: 30
//	steps:
//	  - reveal: sign-1
//	  - reveal: name-1
//	  - advance: 1s
//	    expect:
//	      matched_pairs: 1
//	      moves_remaining: 4
//	final:
//	  total_score: 364
//	  recorded: true
//
// Each step holds exactly one action: reveal (match), select and
// close_media (quiz) or advance (both). expect and final are subset
// matches against the frame state; final may also check high_score,
// best and recorded when a player is set.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/quiz_media_gate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
