package normalize

import "math"

// Magnus formula constants for dew point over water.
const (
	magnusA = 17.625
	magnusB = 243.04
)

// humidityEpsilon keeps ln(RH/100) defined when humidity is zero.
const humidityEpsilon = 0.1

// toCelsius converts a source-unit temperature to Celsius.
// "metric" is already Celsius, "imperial" is Fahrenheit, "standard" is Kelvin
// (matching the OpenWeatherMap units parameter).
func toCelsius(v float64, units string) float64 {
	switch units {
	case "imperial":
		return (v - 32.0) * 5.0 / 9.0
	case "standard":
		return v - 273.15
	default:
		return v
	}
}

func toFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

func fromFahrenheit(f float64) float64 {
	return (f - 32.0) * 5.0 / 9.0
}

// dewPoint computes the dew point in Celsius from temperature (Celsius) and
// relative humidity (percent) using the Magnus approximation.
func dewPoint(tempC, humidity float64) float64 {
	rh := math.Max(humidity, humidityEpsilon)
	gamma := math.Log(rh/100.0) + magnusA*tempC/(magnusB+tempC)
	return magnusB * gamma / (magnusA - gamma)
}

// heatIndex computes the heat index in Celsius from temperature (Celsius) and
// relative humidity (percent). The underlying NWS formulas work in Fahrenheit:
// Steadman's simple formula for mild conditions, the Rothfusz regression with
// the low/high humidity adjustments above 80°F.
func heatIndex(tempC, humidity float64) float64 {
	temp := toFahrenheit(tempC)

	// Heat indices don't make much sense at temps below 77°F.
	if temp < 77 {
		return tempC
	}

	// Steadman's method is valid for heat indices below 80°F.
	hi := 0.5 * (temp + 61.0 + ((temp - 68.0) * 1.2) + (humidity * 0.094))
	if hi < 80 {
		if hi > temp {
			return fromFahrenheit(hi)
		}
		return tempC
	}

	// Above 80°F, use the Rothfusz regression instead.
	c1 := -42.379
	c2 := 2.04901523
	c3 := 10.14333127
	c4 := 0.22475541
	c5 := 0.00683783
	c6 := 0.05481717
	c7 := 0.00122874
	c8 := 0.00085282
	c9 := 0.00000199

	hi = c1 + (c2 * temp) + (c3 * humidity) - (c4 * temp * humidity) -
		(c5 * math.Pow(temp, 2)) - (c6 * math.Pow(humidity, 2)) +
		(c7 * math.Pow(temp, 2) * humidity) + (c8 * temp * math.Pow(humidity, 2)) -
		(c9 * math.Pow(temp, 2) * math.Pow(humidity, 2))

	// RH < 13% between 80 and 112°F subtracts an adjustment; RH > 80%
	// between 80 and 87°F adds one.
	if humidity < 13 && temp >= 80 && temp <= 112 {
		adj := ((13 - humidity) / 4) * math.Sqrt((17-math.Abs(temp-95.0))/17)
		hi -= adj
	} else if humidity > 80 && temp >= 80 && temp <= 87 {
		adj := ((humidity - 85.0) / 10) * ((87.0 - temp) / 5)
		hi += adj
	}

	if hi > temp {
		return fromFahrenheit(hi)
	}
	return tempC
}
