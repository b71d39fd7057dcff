//go:build !portaudio

package doctor

func checkPortAudio() Result {
	return Result{Name: "audio init", Pass: false, Detail: "built without '-tags portaudio'; recording and playback disabled"}
}
