/*
Package botwalk is a resumable flow engine for messaging conversations. It
executes a validated flow graph (triggers, messages, questions, branches,
API calls, drip sequences) one inbound event at a time, suspending whenever
the flow waits for the user and persisting state between events.

# Concept

A flow is a directed graph of typed nodes connected by labeled edges.
Keyword triggers open new instances; question and free-text nodes suspend
the instance until the next reply; condition and http_api nodes branch on
collected variables and call results. The engine owns transitions and state
only. Delivery, outbound HTTP, and scheduling are collaborator interfaces
the host injects, so the same flow runs unchanged against a real messaging
provider or an in-memory test harness.

# Key Features

  - Resumable execution: instances survive process restarts through a
    pluggable state store (in-memory or Redis).
  - Deterministic transitions: same flow, same state, same input always
    produce the same path.
  - Idempotent delivery: replays of the same inbound event id are no-ops.
  - Structural validation: flows are checked for broken references,
    missing branches, and unreachable steps before execution.

# Usage

Build a flow with the dsl package (or load one from YAML with flowfile),
then drive it with Trigger and Resume:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/botwalk/botwalk"
		"github.com/botwalk/botwalk/pkg/adapters/memory"
		"github.com/botwalk/botwalk/pkg/dsl"
	)

	func main() {
		flow, err := dsl.New("welcome").
			Start("start", "hi", "hello").
			Text("greet", "Welcome! What is your name?").
			Ask("name", "Your name?", "name").
			Say("bye", "Thanks, talk soon.").
			Connect("start", "greet").
			Connect("greet", "name").
			Connect("name", "bye").
			Build()
		if err != nil {
			log.Fatal(err)
		}

		out := memory.NewRecorder()
		bot, err := botwalk.New(flow, out)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		state, err := bot.Trigger(ctx, "user-42", "hi", botwalk.TriggerOptions{})
		if err != nil {
			log.Fatal(err)
		}

		// The instance is now waiting for the user's name.
		state, err = bot.Resume(ctx, state.InstanceID, "Ada", botwalk.ResumeOptions{})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(state.Status, state.Variables["name"])
	}
*/
package botwalk
