package main

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// The status LED is a WS2812 on the board, lit while a packet is being read.
var (
	mainLED            ws2812.Device
	mainLEDPin         = machine.GPIO12
	mainLEDPower       = machine.GPIO11
	mainLEDInitialized bool
)

func initMainLED() {
	if mainLEDInitialized {
		return
	}

	mainLEDPower.Configure(machine.PinConfig{Mode: machine.PinOutput})
	mainLEDPower.Low()

	mainLEDPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	mainLED = ws2812.New(mainLEDPin)

	mainLEDInitialized = true
}

func turnOnMainLED(r, g, b uint8) {
	initMainLED()
	mainLEDPower.High()
	mainLED.WriteByte(g)
	mainLED.WriteByte(r)
	mainLED.WriteByte(b)
}

func turnOffMainLED() {
	initMainLED()
	mainLEDPower.Low()
}
