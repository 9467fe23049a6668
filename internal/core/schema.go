package core

// InferSchema maps every column of ds to a destination type, in column order.
//
//	only integers            -> INTEGER
//	integers and floats      -> REAL
//	only booleans            -> INTEGER
//	all null, text, or mixed -> TEXT
func InferSchema(ds *Dataset) ColumnTypeMap {
	out := make(ColumnTypeMap, len(ds.Columns))
	for i, name := range ds.Columns {
		out[i] = ColumnSpec{Name: name, Type: inferColumn(ds, i)}
	}
	return out
}

func inferColumn(ds *Dataset, col int) ColumnType {
	var ints, floats, bools, other int
	for _, row := range ds.Rows {
		switch row[col].Kind() {
		case KindInteger:
			ints++
		case KindFloat:
			floats++
		case KindBool:
			bools++
		case KindText:
			other++
		}
	}

	switch {
	case other > 0:
		return TypeText
	case bools > 0 && ints+floats == 0:
		return TypeInteger
	case bools > 0:
		return TypeText
	case floats > 0:
		return TypeReal
	case ints > 0:
		return TypeInteger
	default:
		return TypeText
	}
}
