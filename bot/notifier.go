package bot

import (
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/models"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/services"
)

// Disabled is the notifier wired when no Telegram credentials are configured
type Disabled struct{}

func (Disabled) NotifyMark(*models.Event) {}

// Both notifiers satisfy the service interface
var (
	_ services.Notifier = (*Bot)(nil)
	_ services.Notifier = Disabled{}
)
