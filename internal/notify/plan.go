package notify

import (
	"context"

	"github.com/wolfman30/studio-scheduler/internal/schedule"
)

// Job builds a fan-out job sending kind to phone.
func (d *Dispatcher) Job(business *schedule.Business, kind Kind, phone string, vars Vars) Job {
	return Job{
		Kind:      kind,
		Recipient: phone,
		Send: func(ctx context.Context) error {
			return d.SendTemplate(ctx, business, kind, phone, vars)
		},
	}
}

func (d *Dispatcher) emailJob(business *schedule.Business, kind Kind, vars Vars) Job {
	return Job{
		Kind:      kind,
		Recipient: "email",
		Send: func(ctx context.Context) error {
			return d.EmailOperators(ctx, business, kind, vars)
		},
	}
}

func (d *Dispatcher) operatorJobs(business *schedule.Business, kind Kind, vars Vars) []Job {
	var jobs []Job
	for _, phone := range business.Notifications.GetOperatorPhones() {
		jobs = append(jobs, d.Job(business, kind, phone, vars))
	}
	if d.email != nil && len(business.Notifications.OperatorEmails) > 0 {
		jobs = append(jobs, d.emailJob(business, kind, vars))
	}
	return jobs
}

// BookingCreatedJobs returns the notifications for a new booking: the
// operator message, the client confirmation and, for first-time clients,
// the welcome message. Nothing is sent when notifications are disabled.
func (d *Dispatcher) BookingCreatedJobs(business *schedule.Business, clientPhone string, newClient bool, vars Vars) []Job {
	if business == nil || !business.Notifications.Enabled {
		return nil
	}
	jobs := d.operatorJobs(business, KindNewBookingOperator, vars)
	if clientPhone != "" {
		jobs = append(jobs, d.Job(business, KindBookingConfirmationClient, clientPhone, vars))
		if newClient && business.Notifications.WelcomeEnabled {
			jobs = append(jobs, d.Job(business, KindWelcomeClient, clientPhone, vars))
		}
	}
	return jobs
}

// RescheduledJobs returns the operator and client messages for a reschedule.
func (d *Dispatcher) RescheduledJobs(business *schedule.Business, clientPhone string, vars Vars) []Job {
	if business == nil || !business.Notifications.Enabled {
		return nil
	}
	jobs := d.operatorJobs(business, KindRescheduleOperator, vars)
	if clientPhone != "" {
		jobs = append(jobs, d.Job(business, KindRescheduleConfirmationClient, clientPhone, vars))
	}
	return jobs
}

// AssetJobs returns the access card message for a client, or nothing when
// the business has no card configured.
func (d *Dispatcher) AssetJobs(business *schedule.Business, kind Kind, clientPhone string, vars Vars) []Job {
	if business == nil || !business.Asset.Configured() || clientPhone == "" {
		return nil
	}
	return []Job{d.Job(business, kind, clientPhone, vars)}
}
