package main

import "github.com/zeusync/duelsim/internal/core/game"

// script picks the input of the local participant for a frame.
type script func(frame game.Frame) game.PlayerInput

var scripts = map[string]script{
	"duelist": duelist,
	"turret":  turret,
	"idle":    func(game.Frame) game.PlayerInput { return 0 },
}

// duelist paces left and right, hops now and then and fires at will.
func duelist(frame game.Frame) game.PlayerInput {
	input := game.InputShoot
	if frame%120 < 60 {
		input |= game.InputLeft
	} else {
		input |= game.InputRight
	}
	if frame%97 == 0 {
		input |= game.InputUp
	}
	return input
}

func turret(game.Frame) game.PlayerInput {
	return game.InputShoot
}
