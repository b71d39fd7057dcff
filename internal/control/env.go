package control

import (
	"fmt"

	"pinyinpal/internal/annotate"
	"pinyinpal/internal/capture"
	"pinyinpal/internal/config"
	"pinyinpal/internal/logging"
	"pinyinpal/internal/phrases"
	"pinyinpal/internal/practice"
	"pinyinpal/internal/pronounce"
	"pinyinpal/internal/speech"

	"github.com/sirupsen/logrus"
)

// env is what every command opens: config, logger and the phrase store.
type env struct {
	cfg        *config.Config
	logger     *logrus.Logger
	annot      *annotate.Annotator
	store      *phrases.Store
	closeStore func() error
}

func openEnv(cfgPath string) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, err
	}
	slot, closeFn, err := phrases.OpenSlot(cfg.Store.Backend, cfg.Store.Path, cfg.Store.Slot)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{
		cfg:        cfg,
		logger:     logger,
		annot:      annotate.NewPinyin(),
		store:      phrases.Load(slot, logger),
		closeStore: closeFn,
	}, nil
}

func (e *env) Close() error {
	return e.closeStore()
}

func (e *env) speaker() *speech.Speaker {
	return speech.NewSpeaker(e.cfg, e.logger)
}

// recorder wires the device source and, when enabled, the VAD gate.
func (e *env) recorder() *capture.Recorder {
	rec := capture.NewRecorder(e.cfg, e.logger, capture.NewDeviceSource(e.cfg, e.logger))
	if e.cfg.Audio.VAD {
		gate, err := capture.NewVADGate(e.cfg)
		if err != nil {
			e.logger.Warnf("vad disabled: %v", err)
		} else {
			rec.SetGate(gate)
		}
	}
	return rec
}

// checker returns nil when speech recognition is not available.
func (e *env) checker() *pronounce.Checker {
	tr, err := pronounce.NewTranscriber(e.cfg, e.logger)
	if err != nil {
		e.logger.Debugf("pronunciation check disabled: %v", err)
		return nil
	}
	return pronounce.NewChecker(e.annot, tr, e.logger)
}

func (e *env) session() *practice.Session {
	return practice.NewSession(practice.Deps{
		Annotator: e.annot,
		Store:     e.store,
		Speaker:   e.speaker(),
		Recorder:  e.recorder(),
		Player:    capture.NewDevicePlayer(e.cfg, e.logger),
		Checker:   e.checker(),
		Logger:    e.logger,
	})
}
