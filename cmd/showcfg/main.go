package main

import (
	"fmt"

	"pinyinpal/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	fmt.Printf("config=%s\n", cfg.Paths.ConfigPath)
	fmt.Printf("store=%s %s slot=%q\n", cfg.Store.Backend, cfg.Store.Path, cfg.Store.Slot)
	fmt.Printf("speech=%s args=%q voice=%s rate=%.2f\n", cfg.Speech.Command, cfg.Speech.Args, cfg.Speech.Voice, cfg.Speech.Rate)
	fmt.Printf("audio device=%q rate=%d formats=%v vad=%v\n", cfg.Audio.DeviceName, cfg.Audio.SampleRate, cfg.Audio.Formats, cfg.Audio.VAD)
	fmt.Printf("asr model=%s lang=%s\n", cfg.ASR.ModelPath, cfg.ASR.Language)
}
