package courier

// ScheduleRecord is the external output shape of one schedule segment.
type ScheduleRecord struct {
	ResourceID     int      `json:"resource_id"`
	ResourceName   string   `json:"resource_name"`
	TaskID         *int     `json:"task_id"`
	TaskName       *string  `json:"task_name"`
	Type           string   `json:"type"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	StartTime      float64  `json:"start_time"`
	EndTime        float64  `json:"end_time"`
	Cost           float64  `json:"cost"`
	IsMoveToCharge bool     `json:"is_move_to_charge"`
	ChargeOnEnd    float64  `json:"charge_on_end"`
}

// ExportRecords flattens the schedule into output records, filling leading
// and inter-item gaps with Idle segments. The schedule itself is not mutated.
func (s *Schedule) ExportRecords() []ScheduleRecord {
	if len(s.items) == 0 {
		return nil
	}

	filled := make([]*ScheduleItem, 0, 2*len(s.items))
	first := s.items[0]
	if first.StartTime > 0 {
		filled = append(filled, &ScheduleItem{
			Order: first.Order, RecType: RecIdle,
			StartTime: 0, EndTime: first.StartTime,
			PointFrom: s.courier.InitPoint, PointTo: s.courier.InitPoint,
		})
	}
	for i, it := range s.items {
		filled = append(filled, it)
		if i == len(s.items)-1 {
			break
		}
		next := s.items[i+1]
		if it.EndTime != next.StartTime {
			filled = append(filled, &ScheduleItem{
				Order: it.Order, RecType: RecIdle,
				StartTime: it.EndTime, EndTime: next.StartTime,
				PointFrom: it.PointTo, PointTo: it.PointTo,
				Params: it.Params,
			})
		}
	}

	records := make([]ScheduleRecord, 0, len(filled))
	for _, it := range filled {
		rec := ScheduleRecord{
			ResourceID:     s.courier.Number,
			ResourceName:   s.courier.Name,
			Type:           string(it.RecType),
			From:           it.PointFrom.String(),
			To:             it.PointTo.String(),
			StartTime:      it.StartTime,
			EndTime:        it.EndTime,
			Cost:           it.Cost,
			IsMoveToCharge: it.RecType == RecMoveToCharge,
			ChargeOnEnd:    s.ChargeAtTime(it.EndTime),
		}
		if it.Order != nil {
			taskID := it.Order.Number
			taskName := it.Order.Name
			rec.TaskID = &taskID
			rec.TaskName = &taskName
		}
		records = append(records, rec)
	}
	return records
}
